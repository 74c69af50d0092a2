package repository

import (
	"errors"
	"time"

	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/models"

	"gorm.io/gorm"
)

// QRSessionRepository 扫码支付会话数据访问接口
type QRSessionRepository interface {
	Create(session *models.QRPaymentSession) error
	GetByTransactionID(transactionID string) (*models.QRPaymentSession, error)
	UpdateStatus(transactionID, fromStatus, toStatus, failReason string) (bool, error)
	SupersedePending(checkoutID, exceptTransactionID string) (int64, error)
	ConsumeCompletion(transactionID string) (bool, error)
	ReleaseCompletion(transactionID string) (bool, error)
	WithTx(tx *gorm.DB) *GormQRSessionRepository
}

// GormQRSessionRepository GORM 实现
type GormQRSessionRepository struct {
	db *gorm.DB
}

// NewQRSessionRepository 创建扫码会话仓库
func NewQRSessionRepository(db *gorm.DB) *GormQRSessionRepository {
	return &GormQRSessionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormQRSessionRepository) WithTx(tx *gorm.DB) *GormQRSessionRepository {
	if tx == nil {
		return r
	}
	return &GormQRSessionRepository{db: tx}
}

// Create 保存新会话
func (r *GormQRSessionRepository) Create(session *models.QRPaymentSession) error {
	return r.db.Create(session).Error
}

// GetByTransactionID 按交易号读取会话，不存在返回 nil
func (r *GormQRSessionRepository) GetByTransactionID(transactionID string) (*models.QRPaymentSession, error) {
	var session models.QRPaymentSession
	err := r.db.Where("transaction_id = ?", transactionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateStatus 带前置状态守卫的状态写入
// 返回是否真正发生了状态变化，终态下的并发写入静默落空。
func (r *GormQRSessionRepository) UpdateStatus(transactionID, fromStatus, toStatus, failReason string) (bool, error) {
	updates := map[string]interface{}{
		"status":     toStatus,
		"updated_at": time.Now(),
	}
	if failReason != "" {
		updates["fail_reason"] = failReason
	}
	result := r.db.Model(&models.QRPaymentSession{}).
		Where("transaction_id = ? AND status = ?", transactionID, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReleaseCompletion 回滚完成事件的消费标记
// 仅对已消费的 completed 会话生效，供提交被后端拒绝后重试。
func (r *GormQRSessionRepository) ReleaseCompletion(transactionID string) (bool, error) {
	result := r.db.Model(&models.QRPaymentSession{}).
		Where("transaction_id = ? AND status = ? AND commit_fired = ?",
			transactionID, constants.QRSessionStatusCompleted, true).
		Updates(map[string]interface{}{
			"commit_fired": false,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SupersedePending 作废同一结算尝试下的其它待支付会话
func (r *GormQRSessionRepository) SupersedePending(checkoutID, exceptTransactionID string) (int64, error) {
	result := r.db.Model(&models.QRPaymentSession{}).
		Where("checkout_id = ? AND transaction_id <> ? AND status IN ?",
			checkoutID, exceptTransactionID,
			[]string{constants.QRSessionStatusPending, constants.QRSessionStatusProcessing}).
		Updates(map[string]interface{}{
			"status":      constants.QRSessionStatusFailed,
			"fail_reason": "superseded by a new session",
			"updated_at":  time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ConsumeCompletion 消费完成事件（带守卫的幂等标记）
// 只有第一次调用返回 true，保证结算续程只触发一次。
func (r *GormQRSessionRepository) ConsumeCompletion(transactionID string) (bool, error) {
	result := r.db.Model(&models.QRPaymentSession{}).
		Where("transaction_id = ? AND status = ? AND commit_fired = ?",
			transactionID, constants.QRSessionStatusCompleted, false).
		Updates(map[string]interface{}{
			"commit_fired": true,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
