package terminal

import (
	"errors"

	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/http/response"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ValidateStock 提交前库存预检
// 结论恒以 200 返回，缺口逐项列出。
func (h *Handler) ValidateStock(c *gin.Context) {
	result, err := h.StockService.Validate(requestContext(c), h.CartService.Snapshot())
	if err != nil {
		respondError(c, response.CodeInternal, "库存校验失败", err)
		return
	}
	response.Success(c, result)
}

// CommitRequest 结算提交入参
type CommitRequest struct {
	PlanType        string                   `json:"plan_type" binding:"required"`
	PaymentMethod   string                   `json:"payment_method"`
	Reference       string                   `json:"reference"`
	Entries         []AllocationEntryRequest `json:"entries"`
	QRTransactionID string                   `json:"qr_transaction_id"`
	Notes           string                   `json:"notes"`
}

// CommitSale 提交结算
func (h *Handler) CommitSale(c *gin.Context) {
	operator, ok := getOperator(c)
	if !ok {
		return
	}
	var req CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}

	input := service.CommitInput{
		PlanType:        req.PlanType,
		PaymentMethod:   req.PaymentMethod,
		Reference:       req.Reference,
		QRTransactionID: req.QRTransactionID,
		Notes:           req.Notes,
		Operator:        operator,
	}
	if req.PlanType == constants.PaymentPlanMulti {
		set, ok := buildAllocationSet(c, req.Entries)
		if !ok {
			return
		}
		input.Allocation = set
	}

	result, err := h.SaleService.Commit(requestContext(c), input)
	if err != nil {
		h.respondCommitError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) respondCommitError(c *gin.Context, err error) {
	var stockErr *service.StockValidationError
	var allocErr *service.AllocationValidationError

	switch {
	case errors.Is(err, service.ErrCartEmpty):
		respondError(c, response.CodeBadRequest, "购物车为空", nil)
	case errors.Is(err, service.ErrOperatorRequired):
		respondError(c, response.CodeUnauthorized, "收银员未登录", nil)
	case errors.Is(err, service.ErrCommitInProgress):
		respondError(c, response.CodeConflict, "已有结算在进行中", nil)
	case errors.As(err, &stockErr):
		response.ErrorWithData(c, response.CodeUnprocessable, "库存不足", gin.H{
			"errors": stockErr.Result.Errors,
		})
	case errors.As(err, &allocErr):
		response.ErrorWithData(c, response.CodeUnprocessable, allocErr.Error(), allocErr.Verdict)
	case errors.Is(err, service.ErrQRSessionNotCompleted):
		respondError(c, response.CodeUnprocessable, "扫码支付尚未完成", nil)
	case errors.Is(err, service.ErrQRAmountMismatch):
		respondError(c, response.CodeUnprocessable, "扫码金额与当前购物车不一致，请重新发起扫码", nil)
	case errors.Is(err, service.ErrQRSessionTerminal):
		respondError(c, response.CodeConflict, "该扫码会话已结算过", nil)
	case errors.Is(err, service.ErrQRSessionNotFound):
		respondError(c, response.CodeNotFound, "扫码会话不存在", nil)
	case errors.Is(err, models.ErrAllocationMethodInvalid),
		errors.Is(err, models.ErrAllocationReferenceRequired),
		errors.Is(err, models.ErrAllocationAmountInvalid):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	default:
		// 后端拒绝的文案原样透出
		respondError(c, response.CodeUpstream, err.Error(), err)
	}
}
