package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/models"
)

func entry(t *testing.T, method string, amount int64, reference string) models.AllocationEntry {
	t.Helper()
	e, err := models.NewAllocationEntry(method, models.NewMoneyFromInt(amount), reference)
	if err != nil {
		t.Fatalf("构造分配条目失败: %v", err)
	}
	return e
}

func TestValidateCashOverpayment(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCash, 25000, ""),
	}}

	verdict := svc.Validate(set, total)
	if !verdict.Valid {
		t.Fatalf("现金超付应通过: %s", verdict.Message)
	}
	if change := svc.ComputeChange(set, total); change.String() != "5000" {
		t.Fatalf("找零应为 5000, got %s", change)
	}
}

func TestValidateNonCashOverageRejected(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCard, 20000, "1234"),
		entry(t, constants.PaymentMethodCash, 1000, ""),
	}}

	verdict := svc.Validate(set, total)
	if verdict.Valid {
		t.Fatal("非现金超付应被拒绝")
	}
	if !errors.Is(verdict.Err, ErrAllocationNonCashOverage) {
		t.Fatalf("应为非现金超付错误, got %v", verdict.Err)
	}
}

func TestValidateShortfall(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCash, 10000, ""),
	}}

	verdict := svc.Validate(set, total)
	if verdict.Valid {
		t.Fatal("支付不足应被拒绝")
	}
	if !errors.Is(verdict.Err, ErrAllocationShortfall) {
		t.Fatalf("应为不足错误, got %v", verdict.Err)
	}
	if verdict.Shortfall.String() != "10000" {
		t.Fatalf("差额应为 10000, got %s", verdict.Shortfall)
	}
}

func TestValidateEmptySet(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	verdict := svc.Validate(models.AllocationSet{}, models.NewMoneyFromInt(20000))
	if verdict.Valid {
		t.Fatal("空集合应被拒绝")
	}
	if !errors.Is(verdict.Err, ErrAllocationEmpty) {
		t.Fatalf("应为空集合错误, got %v", verdict.Err)
	}
}

func TestValidateExactNonCash(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCard, 20000, "1234"),
	}}

	verdict := svc.Validate(set, total)
	if !verdict.Valid {
		t.Fatalf("精确刷卡应通过: %s", verdict.Message)
	}
	if !verdict.Change.Decimal.IsZero() {
		t.Fatalf("精确支付找零应为 0, got %s", verdict.Change)
	}
}

func TestValidateMixedWithCashChange(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCard, 15000, "1234"),
		entry(t, constants.PaymentMethodCash, 10000, ""),
	}}

	verdict := svc.Validate(set, total)
	if !verdict.Valid {
		t.Fatalf("现金补足应通过: %s", verdict.Message)
	}
	if verdict.Change.String() != "5000" {
		t.Fatalf("找零应为 5000, got %s", verdict.Change)
	}
}

func TestValidateIdempotent(t *testing.T) {
	svc := NewPaymentAllocationService(nil, false, false)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCash, 25000, ""),
	}}

	first := svc.Validate(set, total)
	second := svc.Validate(set, total)
	if first.Valid != second.Valid || first.Change.String() != second.Change.String() {
		t.Fatalf("同一输入两次校验结论应一致: %+v vs %+v", first, second)
	}
}

func TestAllocationEntryBoundaries(t *testing.T) {
	if _, err := models.NewAllocationEntry(constants.PaymentMethodCash, models.NewMoneyFromInt(0), ""); !errors.Is(err, models.ErrAllocationAmountInvalid) {
		t.Fatalf("零金额应被拒绝, got %v", err)
	}
	if _, err := models.NewAllocationEntry(constants.PaymentMethodCard, models.NewMoneyFromInt(100), ""); !errors.Is(err, models.ErrAllocationReferenceRequired) {
		t.Fatalf("刷卡无凭证应被拒绝, got %v", err)
	}
	if _, err := models.NewAllocationEntry("barter", models.NewMoneyFromInt(100), ""); !errors.Is(err, models.ErrAllocationMethodInvalid) {
		t.Fatalf("未知方式应被拒绝, got %v", err)
	}
}

func TestValidateRemoteRejectionSentinel(t *testing.T) {
	remote := &fakeAllocationBackend{validate: backend.ValidateResult{
		Valid:   false,
		Message: "split not accepted",
	}}
	svc := NewPaymentAllocationService(remote, false, true)
	total := models.NewMoneyFromInt(20000)
	set := models.AllocationSet{Entries: []models.AllocationEntry{
		entry(t, constants.PaymentMethodCard, 15000, "1234"),
		entry(t, constants.PaymentMethodCash, 5000, ""),
	}}

	verdict, err := svc.ValidateRemote(context.Background(), set, total)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if verdict.Valid {
		t.Fatal("后端拒绝应使结论失败")
	}
	if !errors.Is(verdict.Err, ErrAllocationRejectedRemote) {
		t.Fatalf("应为后端复核拒绝错误, got %v", verdict.Err)
	}
	if errors.Is(verdict.Err, ErrAllocationNonCashOverage) {
		t.Fatal("后端拒绝不得误判为非现金超付")
	}
	if verdict.Message != "split not accepted" {
		t.Fatalf("后端文案应原样保留, got %q", verdict.Message)
	}
}

type fakeAllocationBackend struct {
	suggestions []backend.Suggestion
	validate    backend.ValidateResult
	calls       int
}

func (f *fakeAllocationBackend) SuggestAllocations(ctx context.Context, input backend.SuggestionsInput) ([]backend.Suggestion, error) {
	f.calls++
	return f.suggestions, nil
}

func (f *fakeAllocationBackend) ValidateAllocation(ctx context.Context, input backend.ValidateInput) (*backend.ValidateResult, error) {
	f.calls++
	return &f.validate, nil
}

func TestSuggestMergesRemote(t *testing.T) {
	remote := &fakeAllocationBackend{
		suggestions: []backend.Suggestion{
			{
				Label: "cash + transfer",
				Payments: []backend.PaymentLeg{
					{Method: constants.PaymentMethodCash, Amount: models.NewMoneyFromInt(5000)},
					{Method: constants.PaymentMethodTransfer, Amount: models.NewMoneyFromInt(15000), Reference: "TRF-1"},
				},
			},
			{
				// 无法通过校验的远端建议会被丢弃
				Label: "short",
				Payments: []backend.PaymentLeg{
					{Method: constants.PaymentMethodCash, Amount: models.NewMoneyFromInt(100)},
				},
			},
		},
	}
	svc := NewPaymentAllocationService(remote, true, false)

	got := svc.Suggest(context.Background(), models.NewMoneyFromInt(20000), models.NewMoneyFromInt(8000))
	if remote.calls != 1 {
		t.Fatalf("应请求一次远端建议, got %d", remote.calls)
	}
	for _, s := range got {
		verdict := svc.Validate(s.Set, models.NewMoneyFromInt(20000))
		if !verdict.Valid {
			t.Fatalf("建议 %q 未通过校验: %s", s.Label, verdict.Message)
		}
	}
	var hasRemote bool
	for _, s := range got {
		if s.Label == "cash + transfer" {
			hasRemote = true
		}
	}
	if !hasRemote {
		t.Fatal("合法的远端建议应被合并")
	}
}
