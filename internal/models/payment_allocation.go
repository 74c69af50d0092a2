package models

import (
	"errors"
	"strings"

	"github.com/pos-next/internal/constants"
	"github.com/shopspring/decimal"
)

var (
	// ErrAllocationAmountInvalid 支付金额非法（≤0）
	ErrAllocationAmountInvalid = errors.New("allocation amount must be positive")
	// ErrAllocationMethodInvalid 支付方式不支持
	ErrAllocationMethodInvalid = errors.New("allocation method invalid")
	// ErrAllocationReferenceRequired 非现金方式必须携带凭证号
	ErrAllocationReferenceRequired = errors.New("allocation reference required")
)

// AllocationEntry 组合支付分配条目
type AllocationEntry struct {
	Method    string `json:"method"`    // 支付方式
	Amount    Money  `json:"amount"`    // 本方式承担金额
	Reference string `json:"reference"` // 凭证号（卡号尾号、转账单号等）
}

// referenceRequired 需要凭证号的支付方式
var referenceRequired = map[string]bool{
	constants.PaymentMethodCard:     true,
	constants.PaymentMethodTransfer: true,
	constants.PaymentMethodEwallet:  true,
}

// allocationMethods 允许出现在分配条目中的支付方式
var allocationMethods = map[string]bool{
	constants.PaymentMethodCash:     true,
	constants.PaymentMethodCard:     true,
	constants.PaymentMethodTransfer: true,
	constants.PaymentMethodEwallet:  true,
	constants.PaymentMethodQRIS:     true,
}

// NewAllocationEntry 构造分配条目并做边界校验
func NewAllocationEntry(method string, amount Money, reference string) (AllocationEntry, error) {
	method = strings.TrimSpace(method)
	if !allocationMethods[method] {
		return AllocationEntry{}, ErrAllocationMethodInvalid
	}
	if !amount.Decimal.IsPositive() {
		return AllocationEntry{}, ErrAllocationAmountInvalid
	}
	reference = strings.TrimSpace(reference)
	if referenceRequired[method] && reference == "" {
		return AllocationEntry{}, ErrAllocationReferenceRequired
	}
	return AllocationEntry{Method: method, Amount: amount, Reference: reference}, nil
}

// IsCash 是否现金条目
func (e AllocationEntry) IsCash() bool {
	return e.Method == constants.PaymentMethodCash
}

// AllocationSet 一次结算的支付分配集合
type AllocationSet struct {
	Entries []AllocationEntry `json:"entries"`
}

// CashTotal 现金条目合计
func (s AllocationSet) CashTotal() Money {
	total := decimal.Zero
	for _, e := range s.Entries {
		if e.IsCash() {
			total = total.Add(e.Amount.Decimal)
		}
	}
	return NewMoneyFromDecimal(total)
}

// NonCashTotal 非现金条目合计
func (s AllocationSet) NonCashTotal() Money {
	total := decimal.Zero
	for _, e := range s.Entries {
		if !e.IsCash() {
			total = total.Add(e.Amount.Decimal)
		}
	}
	return NewMoneyFromDecimal(total)
}

// Total 全部条目合计
func (s AllocationSet) Total() Money {
	return s.CashTotal().Add(s.NonCashTotal())
}

// Methods 去重后的支付方式列表（按首次出现顺序）
func (s AllocationSet) Methods() []string {
	seen := make(map[string]bool, len(s.Entries))
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if !seen[e.Method] {
			seen[e.Method] = true
			out = append(out, e.Method)
		}
	}
	return out
}
