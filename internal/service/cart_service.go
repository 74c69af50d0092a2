package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pos-next/internal/cache"
	"github.com/pos-next/internal/constants"
	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/repository"
)

// CartChangeListener 购物车变更回调
type CartChangeListener func(cart models.Cart)

// CartService 购物车服务
// 当前订单内容的唯一权威；整车以 JSON 快照持久化，
// 每次变更后写库并广播，跨实例变更通过通知回读。
type CartService struct {
	repo        repository.CartRepository
	registerKey string

	mu        sync.RWMutex
	cart      models.Cart
	version   uint64
	listeners []CartChangeListener
}

// NewCartService 创建购物车服务
func NewCartService(repo repository.CartRepository, registerKey string) *CartService {
	return &CartService{
		repo:        repo,
		registerKey: registerKey,
		cart:        models.NewCart(),
	}
}

// RegisterKey 收银台存储键
func (s *CartService) RegisterKey() string {
	return s.registerKey
}

// Load 从存储回读购物车（进程启动时调用一次）
func (s *CartService) Load(ctx context.Context) error {
	snapshot, err := s.repo.GetByRegister(s.registerKey)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snapshot == nil {
		s.cart = models.NewCart()
		s.version = 0
		return nil
	}
	s.cart = models.DecodeCart(snapshot.Payload)
	s.version = snapshot.Version
	return nil
}

// Snapshot 当前购物车副本
func (s *CartService) Snapshot() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Version 当前快照版本
func (s *CartService) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// GetQuantity 查询商品在车数量，不存在返回 0
func (s *CartService) GetQuantity(productID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.cart.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Subscribe 订阅购物车变更
func (s *CartService) Subscribe(listener CartChangeListener) {
	if listener == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// AddItem 加入商品
// 已在车中的商品累加数量，单价保持加入时的快照。
func (s *CartService) AddItem(ctx context.Context, product *models.Product, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return s.Snapshot(), ErrQuantityInvalid
	}
	if err := product.Validate(); err != nil {
		return s.Snapshot(), err
	}
	return s.mutate(ctx, func(cart *models.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID == product.ID {
				cart.Items[i].Quantity += quantity
				return nil
			}
		}
		cart.Items = append(cart.Items, models.CartLineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  quantity,
		})
		return nil
	})
}

// UpdateQuantity 调整数量
// quantity ≤ 0 等价于删除该行；商品不在车中为静默空操作。
func (s *CartService) UpdateQuantity(ctx context.Context, productID uint, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}
	return s.mutate(ctx, func(cart *models.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
		return nil
	})
}

// RemoveItem 删除商品行，不存在为空操作
func (s *CartService) RemoveItem(ctx context.Context, productID uint) (models.Cart, error) {
	return s.mutate(ctx, func(cart *models.Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

// Clear 清空购物车
func (s *CartService) Clear(ctx context.Context) (models.Cart, error) {
	return s.mutate(ctx, func(cart *models.Cart) error {
		cart.Items = cart.Items[:0]
		return nil
	})
}

// Refresh 外部变更后回读存储
// 仅当存储版本高于内存版本时替换内存副本并通知订阅者。
func (s *CartService) Refresh(ctx context.Context) (bool, error) {
	snapshot, err := s.repo.GetByRegister(s.registerKey)
	if err != nil {
		return false, err
	}
	if snapshot == nil {
		return false, nil
	}

	s.mu.Lock()
	if snapshot.Version <= s.version {
		s.mu.Unlock()
		return false, nil
	}
	s.cart = models.DecodeCart(snapshot.Payload)
	s.version = snapshot.Version
	cart := s.cart.Clone()
	listeners := append([]CartChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	logger.Infow("cart_refreshed_from_storage",
		"register_key", s.registerKey,
		"version", snapshot.Version,
	)
	for _, listener := range listeners {
		listener(cart)
	}
	return true, nil
}

// mutate 在锁内对购物车副本应用变更并持久化
// 持久化失败时内存副本不变，调用方拿到的是变更前的购物车。
// 订阅者在锁外收到通知，回调里允许回读本服务。
func (s *CartService) mutate(ctx context.Context, apply func(cart *models.Cart) error) (models.Cart, error) {
	s.mu.Lock()

	next := s.cart.Clone()
	if err := apply(&next); err != nil {
		prev := s.cart.Clone()
		s.mu.Unlock()
		return prev, err
	}
	next.Recalculate()

	payload, err := json.Marshal(next)
	if err != nil {
		prev := s.cart.Clone()
		s.mu.Unlock()
		return prev, err
	}
	version, err := s.repo.Save(s.registerKey, payload)
	if err != nil {
		prev := s.cart.Clone()
		s.mu.Unlock()
		return prev, err
	}

	s.cart = next
	s.version = version
	cart := s.cart.Clone()
	listeners := append([]CartChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	s.notifyPeers(ctx, version)
	for _, listener := range listeners {
		listener(cart)
	}
	return cart, nil
}

// notifyPeers 广播跨实例变更通知
func (s *CartService) notifyPeers(ctx context.Context, version uint64) {
	if !cache.Enabled() {
		return
	}
	err := cache.Publish(ctx, constants.CacheChannelCartNotif, map[string]interface{}{
		"register_key": s.registerKey,
		"version":      version,
	})
	if err != nil {
		logger.Warnw("cart_change_publish_failed",
			"register_key", s.registerKey,
			"error", err,
		)
	}
}
