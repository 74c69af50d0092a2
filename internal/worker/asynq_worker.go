package worker

import (
	"context"
	"encoding/json"

	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/provider"
	"github.com/pos-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskQRSessionExpire, c.handleQRSessionExpire)
}

func (c *Consumer) handleQRSessionExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_qr_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.QRSessionExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_qr_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.TransactionID == "" {
		logger.Debugw("worker_qr_expire_skip_invalid_payload")
		return nil
	}
	if c.QRPaymentService == nil {
		logger.Warnw("worker_qr_expire_skip_service_nil", "transaction_id", payload.TransactionID)
		return nil
	}
	if err := c.QRPaymentService.ExpireByTask(ctx, payload.TransactionID); err != nil {
		logger.Warnw("worker_qr_expire_failed", "transaction_id", payload.TransactionID, "error", err)
		return err
	}
	return nil
}
