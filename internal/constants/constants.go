package constants

// 支付方式常量
const (
	PaymentMethodCash     = "cash"
	PaymentMethodCard     = "card"
	PaymentMethodTransfer = "transfer"
	PaymentMethodEwallet  = "ewallet"
	PaymentMethodQRIS     = "qris"
)

// 多方式支付常量
const (
	PaymentPlanSingle = "single"
	PaymentPlanMulti  = "multi"
	PaymentPlanQR     = "qr"
)

// 二维码支付会话状态常量
const (
	QRSessionStatusPending    = "pending"
	QRSessionStatusProcessing = "processing"
	QRSessionStatusCompleted  = "completed"
	QRSessionStatusFailed     = "failed"
)

// 后端二维码核验状态常量
const (
	QRVerifyStatusPending   = "pending"
	QRVerifyStatusCompleted = "completed"
	QRVerifyStatusFailed    = "failed"
	QRVerifyStatusExpired   = "expired"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 异步任务类型常量
const (
	TaskQRSessionExpire = "qr_session:expire"
)

// 缓存键前缀常量
const (
	CacheKeyCommitLock    = "commit_lock"
	CacheChannelCartNotif = "cart_changed"
)
