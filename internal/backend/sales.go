package backend

import (
	"context"

	"github.com/pos-next/internal/models"
)

// SaleItem 销售单行项
type SaleItem struct {
	ProductID uint         `json:"product_id"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
}

// CreateSaleInput 提交销售单请求
type CreateSaleInput struct {
	Items         []SaleItem   `json:"items"`
	PaymentMethod string       `json:"payment_method"`
	Notes         string       `json:"notes,omitempty"`
	MultiPayments []PaymentLeg `json:"multi_payments,omitempty"`
}

// CreateSaleResult 提交销售单结果
type CreateSaleResult struct {
	ID            uint         `json:"id"`
	Total         models.Money `json:"total"`
	PaymentMethod string       `json:"payment_method"`
	Status        string       `json:"status"`
}

// CreateSale 向后端提交销售单
func (c *Client) CreateSale(ctx context.Context, input CreateSaleInput) (*CreateSaleResult, error) {
	var out CreateSaleResult
	if err := c.postJSON(ctx, "/sales", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
