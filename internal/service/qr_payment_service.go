package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/queue"
	"github.com/pos-next/internal/repository"
)

// allowedQRTransitions 扫码会话状态机
// completed 与 failed 为终态，过期会话不可能再回到 completed。
var allowedQRTransitions = map[string][]string{
	constants.QRSessionStatusPending: {
		constants.QRSessionStatusProcessing,
		constants.QRSessionStatusFailed,
	},
	constants.QRSessionStatusProcessing: {
		constants.QRSessionStatusPending,
		constants.QRSessionStatusCompleted,
		constants.QRSessionStatusFailed,
	},
	constants.QRSessionStatusCompleted: {},
	constants.QRSessionStatusFailed:    {},
}

func qrTransitionAllowed(from, to string) bool {
	for _, candidate := range allowedQRTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// QRBackend 扫码收款后端接口
type QRBackend interface {
	GenerateQRPayment(ctx context.Context, input backend.GenerateQRInput) (*backend.GenerateQRResult, error)
	VerifyQRPayment(ctx context.Context, transactionID string) (*backend.VerifyQRResult, error)
	MerchantName() string
}

// QRPaymentService 扫码支付会话服务
// 每次结算尝试最多一条活动会话；超时由本地倒计时与
// 延时队列任务双路兜底，先到先生效。
type QRPaymentService struct {
	repo          repository.QRSessionRepository
	gateway       QRBackend
	queueClient   *queue.Client
	expireSeconds int
	now           func() time.Time
}

// NewQRPaymentService 创建扫码支付服务
func NewQRPaymentService(repo repository.QRSessionRepository, gateway QRBackend, queueClient *queue.Client, expireSeconds int) *QRPaymentService {
	if expireSeconds <= 0 {
		expireSeconds = 300
	}
	return &QRPaymentService{
		repo:          repo,
		gateway:       gateway,
		queueClient:   queueClient,
		expireSeconds: expireSeconds,
		now:           time.Now,
	}
}

// Create 发起新的扫码会话
// 同一结算尝试下先前未结会话一并作废，不允许复用旧交易号。
func (s *QRPaymentService) Create(ctx context.Context, checkoutID, registerKey string, amount models.Money) (*models.QRPaymentSession, error) {
	if !amount.Decimal.IsPositive() {
		return nil, models.ErrAllocationAmountInvalid
	}

	generated, err := s.gateway.GenerateQRPayment(ctx, backend.GenerateQRInput{
		Amount:        amount,
		PaymentMethod: constants.PaymentMethodQRIS,
		MerchantName:  s.gateway.MerchantName(),
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.QRPaymentSession{
		TransactionID: generated.TransactionID,
		CheckoutID:    checkoutID,
		RegisterKey:   registerKey,
		Amount:        amount,
		Method:        constants.PaymentMethodQRIS,
		QRData:        generated.QRData,
		Status:        constants.QRSessionStatusPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(s.expireSeconds) * time.Second),
	}
	if err := s.repo.Create(session); err != nil {
		return nil, err
	}

	superseded, err := s.repo.SupersedePending(checkoutID, session.TransactionID)
	if err != nil {
		logger.Warnw("qr_session_supersede_failed",
			"checkout_id", checkoutID,
			"error", err,
		)
	} else if superseded > 0 {
		logger.Infow("qr_sessions_superseded",
			"checkout_id", checkoutID,
			"count", superseded,
		)
	}

	if err := s.enqueueExpire(session); err != nil {
		logger.Warnw("qr_expire_enqueue_failed",
			"transaction_id", session.TransactionID,
			"error", err,
		)
	}

	logger.Infow("qr_session_created",
		"transaction_id", session.TransactionID,
		"checkout_id", checkoutID,
		"amount", amount.String(),
		"expires_at", session.ExpiresAt,
	)
	return session, nil
}

func (s *QRPaymentService) enqueueExpire(session *models.QRPaymentSession) error {
	if s.queueClient == nil {
		return nil
	}
	delay := time.Until(session.ExpiresAt)
	return s.queueClient.EnqueueQRSessionExpire(queue.QRSessionExpirePayload{
		TransactionID: session.TransactionID,
	}, delay)
}

// Get 查询会话（带本地超时判定）
func (s *QRPaymentService) Get(ctx context.Context, transactionID string) (*models.QRPaymentSession, error) {
	session, err := s.repo.GetByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrQRSessionNotFound
	}
	return s.expireIfDue(session)
}

// expireIfDue 懒惰超时：读到已过期的非终态会话时立即置为 failed
func (s *QRPaymentService) expireIfDue(session *models.QRPaymentSession) (*models.QRPaymentSession, error) {
	if session.IsTerminal() || !session.Expired(s.now()) {
		return session, nil
	}
	changed, err := s.repo.UpdateStatus(session.TransactionID, session.Status, constants.QRSessionStatusFailed, "expired")
	if err != nil {
		return nil, err
	}
	if changed {
		logger.Infow("qr_session_expired",
			"transaction_id", session.TransactionID,
			"from", session.Status,
		)
		session.Status = constants.QRSessionStatusFailed
		session.FailReason = "expired"
		return session, nil
	}
	// 并发写赢了这一次，回读最新状态
	return s.repo.GetByTransactionID(session.TransactionID)
}

// Verify 手动核验支付状态
// pending 会话先转入 processing，再按后端结论落定；
// 后端报仍在等待且未超时则退回 pending。终态会话原样返回，
// 迟到的 completed 回执不会救活已过期的会话。
func (s *QRPaymentService) Verify(ctx context.Context, transactionID string) (*models.QRPaymentSession, error) {
	session, err := s.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if session.IsTerminal() {
		return session, nil
	}

	if session.Status == constants.QRSessionStatusPending {
		changed, err := s.repo.UpdateStatus(transactionID, constants.QRSessionStatusPending, constants.QRSessionStatusProcessing, "")
		if err != nil {
			return nil, err
		}
		if !changed {
			// 状态已被并发方推进
			return s.Get(ctx, transactionID)
		}
		session.Status = constants.QRSessionStatusProcessing
	}

	verified, err := s.gateway.VerifyQRPayment(ctx, transactionID)
	if err != nil {
		// 核验失败不落状态，退回 pending 等待用户重试
		if _, revertErr := s.repo.UpdateStatus(transactionID, constants.QRSessionStatusProcessing, constants.QRSessionStatusPending, ""); revertErr != nil {
			logger.Warnw("qr_session_revert_failed",
				"transaction_id", transactionID,
				"error", revertErr,
			)
		}
		return nil, err
	}

	return s.settle(ctx, session, verified.Status)
}

func (s *QRPaymentService) settle(ctx context.Context, session *models.QRPaymentSession, gatewayStatus string) (*models.QRPaymentSession, error) {
	var target, reason string
	switch gatewayStatus {
	case constants.QRVerifyStatusCompleted:
		target = constants.QRSessionStatusCompleted
	case constants.QRVerifyStatusFailed:
		target = constants.QRSessionStatusFailed
		reason = "payment failed"
	case constants.QRVerifyStatusExpired:
		target = constants.QRSessionStatusFailed
		reason = "expired"
	case constants.QRVerifyStatusPending:
		if session.Expired(s.now()) {
			target = constants.QRSessionStatusFailed
			reason = "expired"
		} else {
			target = constants.QRSessionStatusPending
		}
	default:
		return nil, fmt.Errorf("%w: gateway status %q", ErrQRTransitionInvalid, gatewayStatus)
	}

	if !qrTransitionAllowed(session.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrQRTransitionInvalid, session.Status, target)
	}
	changed, err := s.repo.UpdateStatus(session.TransactionID, session.Status, target, reason)
	if err != nil {
		return nil, err
	}
	if !changed {
		return s.Get(ctx, session.TransactionID)
	}

	session.Status = target
	session.FailReason = reason
	logger.Infow("qr_session_settled",
		"transaction_id", session.TransactionID,
		"status", target,
	)
	return session, nil
}

// ExpireByTask 队列超时任务入口
// 仍未结清的会话置为 failed；已结清或已过期的任务静默落空。
func (s *QRPaymentService) ExpireByTask(ctx context.Context, transactionID string) error {
	session, err := s.repo.GetByTransactionID(transactionID)
	if err != nil {
		return err
	}
	if session == nil || session.IsTerminal() {
		return nil
	}
	if !session.Expired(s.now()) {
		return nil
	}
	changed, err := s.repo.UpdateStatus(transactionID, session.Status, constants.QRSessionStatusFailed, "expired")
	if err != nil {
		return err
	}
	if changed {
		logger.Infow("qr_session_expired_by_task", "transaction_id", transactionID)
	}
	return nil
}

// RequireCompleted 结算前校验会话已完成
func (s *QRPaymentService) RequireCompleted(ctx context.Context, transactionID string) (*models.QRPaymentSession, error) {
	session, err := s.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if session.Status != constants.QRSessionStatusCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrQRSessionNotCompleted, session.Status)
	}
	return session, nil
}

// ConsumeCompletion 幂等消费完成事件
// 只有首次消费返回 true，保证销售提交只被触发一次。
func (s *QRPaymentService) ConsumeCompletion(ctx context.Context, transactionID string) (bool, error) {
	return s.repo.ConsumeCompletion(transactionID)
}

// ReleaseCompletion 释放已消费的完成事件
// 提交被后端拒绝时调用，顾客已付款，必须保留重试通道。
func (s *QRPaymentService) ReleaseCompletion(ctx context.Context, transactionID string) error {
	released, err := s.repo.ReleaseCompletion(transactionID)
	if err != nil {
		return err
	}
	if released {
		logger.Infow("qr_completion_released", "transaction_id", transactionID)
	}
	return nil
}
