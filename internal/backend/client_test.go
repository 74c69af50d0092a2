package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pos-next/internal/config"
	"github.com/pos-next/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.BackendConfig{
		BaseURL:      srv.URL,
		Token:        "svc-token",
		MerchantName: "Test Store",
	})
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	return client, srv
}

func writeEnvelope(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status_code": 200,
		"msg":         "ok",
		"data":        data,
	})
}

func TestGetProduct(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/7" {
			t.Errorf("路径错误: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer svc-token" {
			t.Errorf("令牌错误: %s", got)
		}
		writeEnvelope(w, map[string]interface{}{
			"id":       7,
			"name":     "Americano",
			"price":    "18000",
			"stock":    12,
			"category": "coffee",
		})
	}))

	product, err := client.GetProduct(context.Background(), 7)
	if err != nil {
		t.Fatalf("查询商品失败: %v", err)
	}
	if product.Name != "Americano" {
		t.Fatalf("商品名称错误: %s", product.Name)
	}
	if product.Price.String() != "18000" {
		t.Fatalf("商品价格错误: %s", product.Price)
	}
	if product.Stock != 12 {
		t.Fatalf("商品库存错误: %d", product.Stock)
	}
}

func TestGetProductNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status_code": 404,
			"msg":         "product not found",
		})
	}))

	_, err := client.GetProduct(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("应返回 ErrNotFound, got %v", err)
	}
}

func TestTokenOverrideFromContext(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer operator-token" {
			t.Errorf("应使用上下文令牌, got %s", got)
		}
		writeEnvelope(w, map[string]interface{}{"valid": true, "message": ""})
	}))

	ctx := WithToken(context.Background(), "operator-token")
	result, err := client.ValidateAllocation(ctx, ValidateInput{
		TotalAmount: models.NewMoneyFromInt(20000),
		Payments: []PaymentLeg{
			{Method: "cash", Amount: models.NewMoneyFromInt(20000)},
		},
	})
	if err != nil {
		t.Fatalf("校验请求失败: %v", err)
	}
	if !result.Valid {
		t.Fatalf("校验结果应为 valid")
	}
}

func TestBackendBusinessError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status_code": 422,
			"msg":         "insufficient stock for product 3",
		})
	}))

	_, err := client.CreateSale(context.Background(), CreateSaleInput{
		Items:         []SaleItem{{ProductID: 3, Quantity: 2, UnitPrice: models.NewMoneyFromInt(5000)}},
		PaymentMethod: "cash",
	})
	if err == nil {
		t.Fatal("应返回业务错误")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("应为 APIError, got %T", err)
	}
	if apiErr.Message != "insufficient stock for product 3" {
		t.Fatalf("应保留后端原始文案, got %s", apiErr.Message)
	}
}

func TestGenerateAndVerifyQRPayment(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/qr-payments/generate":
			var input GenerateQRInput
			if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
				t.Errorf("请求体解析失败: %v", err)
			}
			if input.MerchantName != "Test Store" {
				t.Errorf("商户名错误: %s", input.MerchantName)
			}
			writeEnvelope(w, map[string]interface{}{
				"transaction_id": "TXN-001",
				"qr_data":        "00020101021226...",
				"created_at":     "2026-08-29T10:00:00Z",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/qr-payments/verify/TXN-001":
			writeEnvelope(w, map[string]interface{}{"status": "completed"})
		default:
			t.Errorf("意外请求: %s %s", r.Method, r.URL.Path)
		}
	}))

	gen, err := client.GenerateQRPayment(context.Background(), GenerateQRInput{
		Amount:        models.NewMoneyFromInt(15000),
		PaymentMethod: "qris",
		MerchantName:  client.MerchantName(),
	})
	if err != nil {
		t.Fatalf("生成二维码失败: %v", err)
	}
	if gen.TransactionID != "TXN-001" {
		t.Fatalf("交易号错误: %s", gen.TransactionID)
	}

	verify, err := client.VerifyQRPayment(context.Background(), gen.TransactionID)
	if err != nil {
		t.Fatalf("查询状态失败: %v", err)
	}
	if verify.Status != "completed" {
		t.Fatalf("状态错误: %s", verify.Status)
	}
}
