package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pos-next/internal/cache"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/logger"
)

// CartWatcher 购物车外部变更监视器
// 订阅 Redis 变更频道并周期轮询存储版本，发现更新后触发回读。
// 随服务生命周期 Start/Stop，避免泄漏定时器与订阅。
type CartWatcher struct {
	carts        *CartService
	pollInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCartWatcher 创建监视器
func NewCartWatcher(carts *CartService, pollSeconds int) *CartWatcher {
	interval := time.Duration(pollSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &CartWatcher{
		carts:        carts,
		pollInterval: interval,
	}
}

// Start 启动监视
func (w *CartWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx)
}

// Stop 停止监视并等待退出
func (w *CartWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *CartWatcher) run(ctx context.Context) {
	defer close(w.done)

	var notifCh <-chan *redisMessage
	var closePubSub func()
	if cache.Enabled() {
		notifCh, closePubSub = w.subscribe(ctx)
		if closePubSub != nil {
			defer closePubSub()
		}
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		case msg, ok := <-notifCh:
			if !ok {
				notifCh = nil
				continue
			}
			if msg.RegisterKey != w.carts.RegisterKey() {
				continue
			}
			if msg.Version <= w.carts.Version() {
				continue
			}
			w.refresh(ctx)
		}
	}
}

// redisMessage 变更频道消息体
type redisMessage struct {
	RegisterKey string `json:"register_key"`
	Version     uint64 `json:"version"`
}

func (w *CartWatcher) subscribe(ctx context.Context) (<-chan *redisMessage, func()) {
	pubsub := cache.Subscribe(ctx, constants.CacheChannelCartNotif)
	if pubsub == nil {
		return nil, nil
	}
	out := make(chan *redisMessage)
	go func() {
		defer close(out)
		for raw := range pubsub.Channel() {
			var msg redisMessage
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				logger.Warnw("cart_notif_decode_failed", "error", err)
				continue
			}
			select {
			case out <- &msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() { _ = pubsub.Close() }
}

func (w *CartWatcher) refresh(ctx context.Context) {
	if _, err := w.carts.Refresh(ctx); err != nil {
		logger.Warnw("cart_refresh_failed",
			"register_key", w.carts.RegisterKey(),
			"error", err,
		)
	}
}
