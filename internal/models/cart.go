package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// CartLineItem 购物车行项
// 单价在加入时快照，目录后续调价不回溯。
type CartLineItem struct {
	ProductID uint   `json:"product_id"` // 商品ID（购物车内唯一）
	Name      string `json:"name"`       // 商品名称快照
	UnitPrice Money  `json:"unit_price"` // 加入时单价快照
	Quantity  int    `json:"quantity"`   // 数量（≥1）
	LineTotal Money  `json:"line_total"` // 行小计 = 单价 × 数量
}

// Cart 购物车
// total 与 item_count 永远由 items 推导，不单独维护。
type Cart struct {
	Items     []CartLineItem `json:"items"`
	Total     Money          `json:"total"`
	ItemCount int            `json:"item_count"`
}

// NewCart 创建空购物车
func NewCart() Cart {
	return Cart{
		Items:     []CartLineItem{},
		Total:     NewMoneyFromDecimal(decimal.Zero),
		ItemCount: 0,
	}
}

// Recalculate 重新推导总额与件数
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].UnitPrice.MulInt(c.Items[i].Quantity)
		total = total.Add(c.Items[i].LineTotal.Decimal)
		count += c.Items[i].Quantity
	}
	c.Total = NewMoneyFromDecimal(total)
	c.ItemCount = count
}

// Clone 深拷贝
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartLineItem, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// IsEmpty 是否为空车
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// DecodeCart 解析持久化的购物车载荷
// 旧版本或损坏的载荷一律回落为空车（向后兼容规则）。
func DecodeCart(payload []byte) Cart {
	if len(payload) == 0 {
		return NewCart()
	}
	var cart Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		return NewCart()
	}
	if cart.Items == nil {
		cart.Items = []CartLineItem{}
	}
	cart.Recalculate()
	return cart
}

// CartSnapshot 收银台购物车持久化快照（整车一条记录）
type CartSnapshot struct {
	ID          uint      `gorm:"primarykey" json:"id"`                     // 主键
	RegisterKey string    `gorm:"uniqueIndex;not null" json:"register_key"` // 收银台存储键
	Payload     []byte    `json:"-"`                                        // 购物车 JSON 载荷
	Version     uint64    `gorm:"not null;default:0" json:"version"`        // 写入版本（外部变更检测用）
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                  // 更新时间
}

// TableName 指定表名
func (CartSnapshot) TableName() string {
	return "cart_snapshots"
}
