package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pos-next/internal/models"
)

type fakeCatalog struct {
	products map[uint]*models.Product
	failIDs  map[uint]error
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID uint) (*models.Product, error) {
	if err, ok := f.failIDs[productID]; ok {
		return nil, err
	}
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, errors.New("product not found")
}

func cartWith(lines ...models.CartLineItem) models.Cart {
	cart := models.NewCart()
	cart.Items = lines
	cart.Recalculate()
	return cart
}

func TestStockValidateCollectsAllShortfalls(t *testing.T) {
	catalog := &fakeCatalog{products: map[uint]*models.Product{
		1: testProduct(1, 18000, 1),
		2: testProduct(2, 5000, 10),
	}}
	svc := NewStockService(catalog)

	result, err := svc.Validate(context.Background(), cartWith(
		models.CartLineItem{ProductID: 1, UnitPrice: models.NewMoneyFromInt(18000), Quantity: 3},
		models.CartLineItem{ProductID: 2, UnitPrice: models.NewMoneyFromInt(5000), Quantity: 2},
	))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Valid {
		t.Fatal("缺货时应判为不通过")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("应恰好 1 条缺口, got %d", len(result.Errors))
	}
	shortfall := result.Errors[0]
	if shortfall.ProductID != 1 || shortfall.Requested != 3 || shortfall.Available != 1 {
		t.Fatalf("缺口内容错误: %+v", shortfall)
	}
}

func TestStockValidateLookupFailureIsShortfall(t *testing.T) {
	catalog := &fakeCatalog{
		products: map[uint]*models.Product{2: testProduct(2, 5000, 10)},
		failIDs:  map[uint]error{1: errors.New("backend timeout")},
	}
	svc := NewStockService(catalog)

	result, err := svc.Validate(context.Background(), cartWith(
		models.CartLineItem{ProductID: 1, UnitPrice: models.NewMoneyFromInt(18000), Quantity: 2},
		models.CartLineItem{ProductID: 2, UnitPrice: models.NewMoneyFromInt(5000), Quantity: 2},
	))
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if result.Valid {
		t.Fatal("查询失败不得放行")
	}
	if len(result.Errors) != 1 || result.Errors[0].ProductID != 1 {
		t.Fatalf("缺口内容错误: %+v", result.Errors)
	}
	if result.Errors[0].Message == "" {
		t.Fatal("查询失败应带原因")
	}
}

func TestStockValidateEmptyCart(t *testing.T) {
	svc := NewStockService(&fakeCatalog{})
	result, err := svc.Validate(context.Background(), models.NewCart())
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if !result.Valid || len(result.Errors) != 0 {
		t.Fatalf("空车应直接通过: %+v", result)
	}
}
