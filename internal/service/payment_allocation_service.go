package service

import (
	"context"
	"fmt"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/models"
)

// AllocationVerdict 支付分配校验结论
type AllocationVerdict struct {
	Valid     bool         `json:"valid"`
	Message   string       `json:"message,omitempty"`
	Shortfall models.Money `json:"shortfall"` // 差额（不足时 > 0）
	Change    models.Money `json:"change"`    // 找零（通过时 ≥ 0）

	// Err 失败原因哨兵，调用方用 errors.Is 判别
	Err error `json:"-"`
}

// AllocationSuggestion 候选拆分（含展示标签）
type AllocationSuggestion struct {
	Label string               `json:"label"`
	Set   models.AllocationSet `json:"set"`
}

// AllocationBackend 后端拆分辅助接口
type AllocationBackend interface {
	SuggestAllocations(ctx context.Context, input backend.SuggestionsInput) ([]backend.Suggestion, error)
	ValidateAllocation(ctx context.Context, input backend.ValidateInput) (*backend.ValidateResult, error)
}

// PaymentAllocationService 组合支付核算
// 核心规则：找零只能来自现金，非现金条目必须精确承担，
// 超出现金可找零范围的非现金超付一律判为核对失败。
type PaymentAllocationService struct {
	remote             AllocationBackend
	suggestionsEnabled bool
	remoteValidate     bool
}

// NewPaymentAllocationService 创建组合支付服务
func NewPaymentAllocationService(remote AllocationBackend, suggestionsEnabled, remoteValidate bool) *PaymentAllocationService {
	return &PaymentAllocationService{
		remote:             remote,
		suggestionsEnabled: suggestionsEnabled,
		remoteValidate:     remoteValidate,
	}
}

// Validate 校验分配集合能否覆盖订单总额
// 纯本地计算，幂等；同一 (集合, 总额) 的多次校验结论一致。
func (s *PaymentAllocationService) Validate(set models.AllocationSet, total models.Money) AllocationVerdict {
	if len(set.Entries) == 0 {
		return AllocationVerdict{
			Valid:     false,
			Message:   "至少需要一笔支付",
			Shortfall: total,
			Err:       ErrAllocationEmpty,
		}
	}

	cash := set.CashTotal()
	nonCash := set.NonCashTotal()
	paid := cash.Add(nonCash)

	if paid.Decimal.LessThan(total.Decimal) {
		shortfall := total.Sub(paid)
		return AllocationVerdict{
			Valid:     false,
			Message:   fmt.Sprintf("支付合计不足，还差 %s", shortfall),
			Shortfall: shortfall,
			Err:       ErrAllocationShortfall,
		}
	}

	// 非现金条目最多承担扣除现金后仍欠的部分；
	// 超出部分无法以找零退还（找零只出现金）。
	coverable := total.Sub(cash)
	if coverable.Decimal.IsNegative() {
		coverable = models.NewMoneyFromInt(0)
	}
	if nonCash.Decimal.GreaterThan(coverable.Decimal) {
		return AllocationVerdict{
			Valid:   false,
			Message: "非现金支付超出应承担金额，无法找零",
			Err:     ErrAllocationNonCashOverage,
		}
	}

	return AllocationVerdict{
		Valid:  true,
		Change: s.ComputeChange(set, total),
	}
}

// ComputeChange 计算找零
// change = max(0, cash − (total − nonCash))，找零只出自现金。
func (s *PaymentAllocationService) ComputeChange(set models.AllocationSet, total models.Money) models.Money {
	owedByCash := total.Sub(set.NonCashTotal())
	change := set.CashTotal().Sub(owedByCash)
	if change.Decimal.IsNegative() {
		return models.NewMoneyFromInt(0)
	}
	return change
}

// ValidateRemote 附加的后端侧校验（可选开关）
// 本地结论优先；仅本地通过后才请求后端复核。
func (s *PaymentAllocationService) ValidateRemote(ctx context.Context, set models.AllocationSet, total models.Money) (AllocationVerdict, error) {
	verdict := s.Validate(set, total)
	if !verdict.Valid || !s.remoteValidate || s.remote == nil {
		return verdict, nil
	}

	legs := make([]backend.PaymentLeg, 0, len(set.Entries))
	for _, e := range set.Entries {
		legs = append(legs, backend.PaymentLeg{Method: e.Method, Amount: e.Amount, Reference: e.Reference})
	}
	result, err := s.remote.ValidateAllocation(ctx, backend.ValidateInput{
		Payments:    legs,
		TotalAmount: total,
	})
	if err != nil {
		return verdict, err
	}
	if !result.Valid {
		verdict.Valid = false
		verdict.Message = result.Message
		verdict.Err = ErrAllocationRejectedRemote
	}
	return verdict, nil
}

// Suggest 生成候选拆分（本地启发 + 可选后端建议）
// 建议只是便捷入口，任何建议提交前仍需通过 Validate。
func (s *PaymentAllocationService) Suggest(ctx context.Context, total, availableCash models.Money) []AllocationSuggestion {
	suggestions := s.localSuggestions(total, availableCash)

	if s.suggestionsEnabled && s.remote != nil {
		remote, err := s.remote.SuggestAllocations(ctx, backend.SuggestionsInput{
			TotalAmount:   total,
			AvailableCash: availableCash,
		})
		if err != nil {
			logger.Warnw("allocation_suggestions_failed", "error", err)
		} else {
			for _, r := range remote {
				set := models.AllocationSet{}
				for _, leg := range r.Payments {
					set.Entries = append(set.Entries, models.AllocationEntry{
						Method:    leg.Method,
						Amount:    leg.Amount,
						Reference: leg.Reference,
					})
				}
				if verdict := s.Validate(set, total); verdict.Valid {
					suggestions = append(suggestions, AllocationSuggestion{Label: r.Label, Set: set})
				}
			}
		}
	}
	return suggestions
}

func (s *PaymentAllocationService) localSuggestions(total, availableCash models.Money) []AllocationSuggestion {
	var out []AllocationSuggestion
	if !total.Decimal.IsPositive() {
		return out
	}

	if availableCash.Decimal.GreaterThanOrEqual(total.Decimal) {
		out = append(out, AllocationSuggestion{
			Label: "全额现金",
			Set: models.AllocationSet{Entries: []models.AllocationEntry{
				{Method: constants.PaymentMethodCash, Amount: total},
			}},
		})
	} else if availableCash.Decimal.IsPositive() {
		remainder := total.Sub(availableCash)
		out = append(out, AllocationSuggestion{
			Label: fmt.Sprintf("现金 %s + 刷卡 %s", availableCash, remainder),
			Set: models.AllocationSet{Entries: []models.AllocationEntry{
				{Method: constants.PaymentMethodCash, Amount: availableCash},
				{Method: constants.PaymentMethodCard, Amount: remainder},
			}},
		})
	}
	out = append(out, AllocationSuggestion{
		Label: "全额刷卡",
		Set: models.AllocationSet{Entries: []models.AllocationEntry{
			{Method: constants.PaymentMethodCard, Amount: total},
		}},
	})
	return out
}
