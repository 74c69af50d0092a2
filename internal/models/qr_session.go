package models

import (
	"time"

	"github.com/pos-next/internal/constants"
)

// QRPaymentSession 扫码支付会话
// 一次结算尝试最多一条活动会话，状态机见 service 层。
type QRPaymentSession struct {
	ID            uint      `gorm:"primarykey" json:"id"`                          // 主键
	TransactionID string    `gorm:"uniqueIndex;not null" json:"transaction_id"`    // 支付网关交易号
	CheckoutID    string    `gorm:"index;not null" json:"checkout_id"`             // 结算尝试标识
	RegisterKey   string    `gorm:"index;not null" json:"register_key"`            // 收银台
	Amount        Money     `gorm:"type:decimal(16,0)" json:"amount"`              // 收款金额
	Method        string    `gorm:"size:32;not null" json:"method"`                // 支付方式（qris）
	QRData        string    `gorm:"type:text" json:"qr_data"`                      // 二维码内容
	Status        string    `gorm:"size:16;index;not null" json:"status"`          // 会话状态
	CommitFired   bool      `gorm:"not null;default:false" json:"commit_fired"`    // 完成回调是否已消费
	FailReason    string    `gorm:"size:255" json:"fail_reason,omitempty"`         // 失败原因
	CreatedAt     time.Time `json:"created_at"`                                    // 创建时间
	UpdatedAt     time.Time `json:"updated_at"`                                    // 更新时间
	ExpiresAt     time.Time `gorm:"index" json:"expires_at"`                       // 过期时间
}

// TableName 指定表名
func (QRPaymentSession) TableName() string {
	return "qr_payment_sessions"
}

// IsTerminal 是否终态
func (s *QRPaymentSession) IsTerminal() bool {
	return s.Status == constants.QRSessionStatusCompleted || s.Status == constants.QRSessionStatusFailed
}

// Expired 按本地时钟判断是否已过期
func (s *QRPaymentSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
