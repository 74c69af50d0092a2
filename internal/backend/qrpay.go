package backend

import (
	"context"
	"time"

	"github.com/pos-next/internal/models"
)

// GenerateQRInput 生成二维码收款请求
type GenerateQRInput struct {
	Amount        models.Money `json:"amount"`
	PaymentMethod string       `json:"payment_method"`
	MerchantName  string       `json:"merchant_name"`
}

// GenerateQRResult 生成二维码收款结果
type GenerateQRResult struct {
	TransactionID string    `json:"transaction_id"`
	QRData        string    `json:"qr_data"`
	CreatedAt     time.Time `json:"created_at"`
}

// GenerateQRPayment 请求后端生成扫码收款
func (c *Client) GenerateQRPayment(ctx context.Context, input GenerateQRInput) (*GenerateQRResult, error) {
	var out GenerateQRResult
	if err := c.postJSON(ctx, "/qr-payments/generate", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyQRResult 扫码收款查询结果
type VerifyQRResult struct {
	Status string `json:"status"` // pending / completed / failed / expired
}

// VerifyQRPayment 查询扫码收款状态
func (c *Client) VerifyQRPayment(ctx context.Context, transactionID string) (*VerifyQRResult, error) {
	var out VerifyQRResult
	if err := c.getJSON(ctx, "/qr-payments/verify/"+transactionID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
