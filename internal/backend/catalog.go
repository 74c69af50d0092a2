package backend

import (
	"context"
	"fmt"

	"github.com/pos-next/internal/models"
)

// GetProduct 按 ID 查询目录商品
func (c *Client) GetProduct(ctx context.Context, productID uint) (*models.Product, error) {
	var product models.Product
	if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", productID), &product); err != nil {
		return nil, err
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return &product, nil
}
