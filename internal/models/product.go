package models

import (
	"errors"
	"strings"
)

// ErrProductInvalid 目录商品数据非法
var ErrProductInvalid = errors.New("product invalid")

// Product 目录商品（只读，由后端目录服务拥有）
type Product struct {
	ID       uint   `json:"id"`       // 商品ID
	Name     string `json:"name"`     // 商品名称
	Price    Money  `json:"price"`    // 当前单价
	Stock    int    `json:"stock"`    // 当前库存
	Category string `json:"category"` // 分类
}

// Validate 目录数据入口校验
// 核心内部不再对商品字段做可空判断，全部在此边界完成。
func (p *Product) Validate() error {
	if p == nil {
		return ErrProductInvalid
	}
	if p.ID == 0 {
		return ErrProductInvalid
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrProductInvalid
	}
	if p.Price.Decimal.IsNegative() {
		return ErrProductInvalid
	}
	if p.Stock < 0 {
		return ErrProductInvalid
	}
	return nil
}
