package provider

import (
	"context"

	"github.com/pos-next/internal/backend"
	"github.com/pos-next/internal/cache"
	"github.com/pos-next/internal/config"
	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/models"
	"github.com/pos-next/internal/queue"
	"github.com/pos-next/internal/repository"
	"github.com/pos-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config        *config.Config
	QueueClient   *queue.Client
	BackendClient *backend.Client

	// Repositories
	CartRepo      repository.CartRepository
	QRSessionRepo repository.QRSessionRepository

	// Services
	CartService       *service.CartService
	CartWatcher       *service.CartWatcher
	StockService      *service.StockService
	AllocationService *service.PaymentAllocationService
	QRPaymentService  *service.QRPaymentService
	SaleService       *service.SaleService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	backendClient, err := backend.NewClient(cfg.Backend)
	if err != nil {
		logger.Errorw("provider_init_backend_client_failed", "error", err)
		panic(err)
	}

	c := &Container{
		Config:        cfg,
		QueueClient:   queueClient,
		BackendClient: backendClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.CartRepo = repository.NewCartRepository(db)
	c.QRSessionRepo = repository.NewQRSessionRepository(db)
}

func (c *Container) initServices() {
	c.CartService = service.NewCartService(c.CartRepo, c.Config.Cart.RegisterKey)
	if err := c.CartService.Load(context.Background()); err != nil {
		logger.Warnw("provider_cart_load_failed", "error", err)
	}
	c.CartWatcher = service.NewCartWatcher(c.CartService, c.Config.Cart.PollSeconds)
	c.StockService = service.NewStockService(c.BackendClient)
	c.AllocationService = service.NewPaymentAllocationService(
		c.BackendClient,
		c.Config.Backend.SuggestionsEnabled,
		c.Config.Backend.RemoteValidate,
	)
	c.QRPaymentService = service.NewQRPaymentService(c.QRSessionRepo, c.BackendClient, c.QueueClient, c.Config.QR.ExpireSeconds)
	c.SaleService = service.NewSaleService(c.CartService, c.StockService, c.AllocationService, c.QRPaymentService, c.BackendClient)
}
