package routes

import (
	"github.com/1abobik1/FlowStudio/config"
	"github.com/1abobik1/FlowStudio/internal/handler/flow_handler"
	"github.com/1abobik1/FlowStudio/internal/handler/wallet_handler"
	"github.com/1abobik1/FlowStudio/internal/handler/webhook_handler"
	"github.com/1abobik1/FlowStudio/internal/middleware"
	tb "github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, cfg *config.Config, flowHandler *flow_handler.FlowHandler,
	webhookHandler *webhook_handler.WebhookHandler, walletHandler *wallet_handler.WalletHandler,
) {

	// Flow data-exchange
	flowLimiter := tb.NewLimiter(cfg.FLimiter.RPC, &limiter.ExpirableOptions{DefaultExpirationTTL: cfg.FLimiter.TTL})
	flowLimiter.SetBurst(cfg.FLimiter.Burst)

	r.POST("/flow",
		middleware.LimitHandler(flowLimiter),
		middleware.ExchangeAttemptLimiter(),
		flowHandler.Exchange,
	)

	// Вебхук платформы сообщений
	whLimiter := tb.NewLimiter(cfg.WhLimiter.RPC, &limiter.ExpirableOptions{DefaultExpirationTTL: cfg.WhLimiter.TTL})
	whLimiter.SetBurst(cfg.WhLimiter.Burst)

	whGroup := r.Group("/webhook")
	{
		whGroup.GET("", webhookHandler.Verify)
		whGroup.POST("",
			middleware.LimitHandler(whLimiter),
			middleware.SignatureMiddleware(cfg.WhatsApp.AppSecret),
			webhookHandler.Receive,
		)
	}

	// Вебхук платёжного шлюза
	r.POST("/payments/webhook",
		middleware.LimitHandler(whLimiter),
		middleware.SignatureMiddleware(cfg.Payments.WebhookSecret),
		webhookHandler.PaymentWebhook,
	)

	// Админское API кошельков
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTMiddleware(cfg.JWT.PublicKeyPath))
	{
		adminGroup.GET("/wallet/:wa_id", walletHandler.GetWallet)
		adminGroup.POST("/wallet/:wa_id/credit", walletHandler.CreditWallet)
	}
}
