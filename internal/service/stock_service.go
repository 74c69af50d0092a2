package service

import (
	"context"

	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/models"
)

// ProductLookup 目录商品查询
type ProductLookup interface {
	GetProduct(ctx context.Context, productID uint) (*models.Product, error)
}

// StockShortfall 单个商品的库存缺口
type StockShortfall struct {
	ProductID uint   `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Message   string `json:"message,omitempty"`
}

// StockValidationResult 库存校验结果
type StockValidationResult struct {
	Valid  bool             `json:"valid"`
	Errors []StockShortfall `json:"errors"`
}

// StockService 提交前库存校验
// 乐观校验：不锁库存，最终扣减以后端建单为准。
type StockService struct {
	catalog ProductLookup
}

// NewStockService 创建库存校验服务
func NewStockService(catalog ProductLookup) *StockService {
	return &StockService{catalog: catalog}
}

// Validate 校验整车库存
// 逐行查询并收集全部缺口，不在首个缺口处短路；
// 单个商品查询失败按该商品缺口处理，而不是放行。
func (s *StockService) Validate(ctx context.Context, cart models.Cart) (*StockValidationResult, error) {
	result := &StockValidationResult{Errors: []StockShortfall{}}
	for _, line := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			logger.Warnw("stock_lookup_failed",
				"product_id", line.ProductID,
				"error", err,
			)
			result.Errors = append(result.Errors, StockShortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: 0,
				Message:   err.Error(),
			})
			continue
		}
		if product.Stock < line.Quantity {
			result.Errors = append(result.Errors, StockShortfall{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: product.Stock,
			})
		}
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}
