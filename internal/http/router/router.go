package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soulbahprojet/solutions224-backend/internal/config"
	"github.com/soulbahprojet/solutions224-backend/internal/http/handlers"
	"github.com/soulbahprojet/solutions224-backend/internal/http/middleware"
	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/service"
)

// SetupRouter собирает gin engine со всеми маршрутами платёжного сервиса.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	orderHandler *handlers.OrderHandler,
	webhookHandler *handlers.WebhookHandler,
	escrowHandler *handlers.EscrowHandler,
	ledgerHandler *handlers.LedgerHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// Webhook провайдера: аутентификация по подписи, не по JWT.
	webhooks := api.Group("/webhooks")
	webhooks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		webhooks.POST("/payment", webhookHandler.HandlePayment)
	}

	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/orders", orderHandler.Create)
		protected.GET("/orders/my", orderHandler.ListMy)
		protected.GET("/orders/pi/:number", orderHandler.GetByPINumber)
		protected.GET("/orders/:id", middleware.UUIDValidator("id"), orderHandler.Get)

		protected.GET("/escrows", escrowHandler.ListMy)
		protected.GET("/escrows/:id", middleware.UUIDValidator("id"), escrowHandler.Get)
		protected.POST("/escrows/:id/release", middleware.UUIDValidator("id"), escrowHandler.Release)
		protected.POST("/escrows/:id/refund", middleware.UUIDValidator("id"), escrowHandler.Refund)

		protected.GET("/ledger", ledgerHandler.ListMy)
		protected.GET("/events", ledgerHandler.ListMyEvents)
	}

	// Админ: список всех escrow без фильтра по участнику.
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/escrows", escrowHandler.ListAll)
	}

	return r
}
