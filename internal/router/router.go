package router

import (
	"github.com/pos-next/internal/config"
	terminalhandlers "github.com/pos-next/internal/http/handlers/terminal"
	"github.com/pos-next/internal/logger"
	"github.com/pos-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	terminalHandler := terminalhandlers.New(c)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		// 购物车操作不要求登录，结算相关接口要求收银员令牌
		cart := apiV1.Group("")
		{
			cart.GET("/cart", terminalHandler.GetCart)
			cart.POST("/cart/items", terminalHandler.AddCartItem)
			cart.PUT("/cart/items/:product_id", terminalHandler.UpdateCartItem)
			cart.DELETE("/cart/items/:product_id", terminalHandler.DeleteCartItem)
			cart.DELETE("/cart", terminalHandler.ClearCart)
		}

		checkout := apiV1.Group("")
		checkout.Use(OperatorJWTMiddleware(cfg.JWT.SecretKey))
		{
			checkout.POST("/checkout/validate-stock", terminalHandler.ValidateStock)
			checkout.POST("/payments/suggest", terminalHandler.SuggestAllocations)
			checkout.POST("/payments/validate", terminalHandler.ValidateAllocation)
			checkout.POST("/qr-sessions", terminalHandler.CreateQRSession)
			checkout.GET("/qr-sessions/:transaction_id", terminalHandler.GetQRSession)
			checkout.POST("/qr-sessions/:transaction_id/verify", terminalHandler.VerifyQRSession)
			checkout.POST("/checkout/commit", terminalHandler.CommitSale)
		}
	}

	return r
}
