package terminal

import (
	"errors"

	"github.com/pos-next/internal/http/response"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateQRSessionRequest 创建扫码会话入参
// amount 缺省取当前车总额，checkout_id 缺省新发一个。
type CreateQRSessionRequest struct {
	CheckoutID string       `json:"checkout_id"`
	Amount     models.Money `json:"amount"`
}

// CreateQRSession 发起扫码会话
func (h *Handler) CreateQRSession(c *gin.Context) {
	var req CreateQRSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "请求参数错误", err)
		return
	}
	amount := req.Amount
	if !amount.Decimal.IsPositive() {
		amount = h.CartService.Snapshot().Total
	}
	if !amount.Decimal.IsPositive() {
		respondError(c, response.CodeBadRequest, "收款金额必须为正数", nil)
		return
	}
	checkoutID := req.CheckoutID
	if checkoutID == "" {
		checkoutID = uuid.NewString()
	}

	session, err := h.QRPaymentService.Create(requestContext(c), checkoutID, h.CartService.RegisterKey(), amount)
	if err != nil {
		respondError(c, response.CodeUpstream, err.Error(), err)
		return
	}
	response.Success(c, gin.H{
		"session":     session,
		"checkout_id": checkoutID,
	})
}

// GetQRSession 查询会话状态（带本地超时判定）
func (h *Handler) GetQRSession(c *gin.Context) {
	session, err := h.QRPaymentService.Get(requestContext(c), c.Param("transaction_id"))
	if err != nil {
		if errors.Is(err, service.ErrQRSessionNotFound) {
			respondError(c, response.CodeNotFound, "扫码会话不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "会话查询失败", err)
		return
	}
	response.Success(c, gin.H{"session": session})
}

// VerifyQRSession 手动核验支付状态
func (h *Handler) VerifyQRSession(c *gin.Context) {
	session, err := h.QRPaymentService.Verify(requestContext(c), c.Param("transaction_id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQRSessionNotFound):
			respondError(c, response.CodeNotFound, "扫码会话不存在", nil)
		case errors.Is(err, service.ErrQRTransitionInvalid):
			respondError(c, response.CodeConflict, err.Error(), nil)
		default:
			respondError(c, response.CodeUpstream, err.Error(), err)
		}
		return
	}
	response.Success(c, gin.H{"session": session})
}
