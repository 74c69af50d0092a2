package terminal

import (
	"github.com/pos-next/internal/http/response"
	"github.com/pos-next/internal/models"

	"github.com/gin-gonic/gin"
)

// AllocationEntryRequest 分配条目入参
type AllocationEntryRequest struct {
	Method    string       `json:"method" binding:"required"`
	Amount    models.Money `json:"amount"`
	Reference string       `json:"reference"`
}

// SuggestRequest 拆分建议入参
type SuggestRequest struct {
	Total         models.Money `json:"total"`
	AvailableCash models.Money `json:"available_cash"`
}

// ValidateRequest 拆分核对入参
type ValidateRequest struct {
	Total   models.Money             `json:"total"`
	Entries []AllocationEntryRequest `json:"entries" binding:"required"`
}

func buildAllocationSet(c *gin.Context, entries []AllocationEntryRequest) (models.AllocationSet, bool) {
	set := models.AllocationSet{}
	for _, raw := range entries {
		entry, err := models.NewAllocationEntry(raw.Method, raw.Amount, raw.Reference)
		if err != nil {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return set, false
		}
		set.Entries = append(set.Entries, entry)
	}
	return set, true
}

// SuggestAllocations 生成候选拆分
func (h *Handler) SuggestAllocations(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	total := req.Total
	if !total.Decimal.IsPositive() {
		total = h.CartService.Snapshot().Total
	}

	suggestions := h.AllocationService.Suggest(requestContext(c), total, req.AvailableCash)
	response.Success(c, gin.H{
		"total":       total,
		"suggestions": suggestions,
	})
}

// ValidateAllocation 核对拆分
// 结论恒以 200 返回，valid 字段表达通过与否。
func (h *Handler) ValidateAllocation(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	set, ok := buildAllocationSet(c, req.Entries)
	if !ok {
		return
	}
	total := req.Total
	if !total.Decimal.IsPositive() {
		total = h.CartService.Snapshot().Total
	}

	verdict, err := h.AllocationService.ValidateRemote(requestContext(c), set, total)
	if err != nil {
		respondError(c, response.CodeUpstream, err.Error(), err)
		return
	}
	response.Success(c, verdict)
}
