package queue

import (
	"encoding/json"

	"github.com/pos-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskQRSessionExpire 扫码会话超时任务
	TaskQRSessionExpire = constants.TaskQRSessionExpire
)

// QRSessionExpirePayload 扫码会话超时任务载荷
type QRSessionExpirePayload struct {
	TransactionID string `json:"transaction_id"`
}

// NewQRSessionExpireTask 创建扫码会话超时任务
func NewQRSessionExpireTask(payload QRSessionExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQRSessionExpire, body), nil
}
