package backend

import (
	"context"

	"github.com/pos-next/internal/models"
)

// PaymentLeg 拆分校验/建议接口中的单笔支付
type PaymentLeg struct {
	Method    string       `json:"method"`
	Amount    models.Money `json:"amount"`
	Reference string       `json:"reference,omitempty"`
}

// SuggestionsInput 拆分建议请求
type SuggestionsInput struct {
	TotalAmount   models.Money `json:"total_amount"`
	AvailableCash models.Money `json:"available_cash"`
}

// Suggestion 后端返回的候选拆分
type Suggestion struct {
	Label    string       `json:"label"`
	Payments []PaymentLeg `json:"payments"`
}

// SuggestAllocations 请求后端拆分建议
func (c *Client) SuggestAllocations(ctx context.Context, input SuggestionsInput) ([]Suggestion, error) {
	var out struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := c.postJSON(ctx, "/multi-payment/suggestions", input, &out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

// ValidateInput 拆分校验请求
type ValidateInput struct {
	Payments    []PaymentLeg `json:"payments"`
	TotalAmount models.Money `json:"total_amount"`
}

// ValidateResult 拆分校验结果
type ValidateResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ValidateAllocation 请求后端校验拆分
func (c *Client) ValidateAllocation(ctx context.Context, input ValidateInput) (*ValidateResult, error) {
	var out ValidateResult
	if err := c.postJSON(ctx, "/multi-payment/validate", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
