package app

import (
	"context"
	"errors"

	"github.com/pos-next/internal/service"
)

// WatcherService 购物车变更监视服务封装
type WatcherService struct {
	name    string
	watcher *service.CartWatcher
}

// NewWatcherService 创建监视服务
func NewWatcherService(watcher *service.CartWatcher) *WatcherService {
	return &WatcherService{
		name:    "cart-watcher",
		watcher: watcher,
	}
}

// Name 服务名称
func (s *WatcherService) Name() string {
	if s == nil || s.name == "" {
		return "cart-watcher"
	}
	return s.name
}

// Start 启动监视并阻塞到上下文取消
func (s *WatcherService) Start(ctx context.Context) error {
	if s == nil || s.watcher == nil {
		return errors.New("cart watcher not initialized")
	}
	s.watcher.Start()
	<-ctx.Done()
	return ctx.Err()
}

// Stop 停止监视
func (s *WatcherService) Stop(ctx context.Context) error {
	if s == nil || s.watcher == nil {
		return nil
	}
	s.watcher.Stop()
	return nil
}
