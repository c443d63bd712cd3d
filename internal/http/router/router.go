package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gamemarket-backend/internal/config"
	"github.com/ignatzorin/gamemarket-backend/internal/http/handlers"
	"github.com/ignatzorin/gamemarket-backend/internal/http/middleware"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	listingHandler *handlers.ListingHandler,
	tradeHandler *handlers.TradeHandler,
	disputeHandler *handlers.DisputeHandler,
	conversationHandler *handlers.ConversationHandler,
	reportHandler *handlers.ReportHandler,
	notificationHandler *handlers.NotificationHandler,
	evidenceHandler *handlers.EvidenceHandler,
	adminHandler *handlers.AdminHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/evidence", http.Dir(cfg.EvidenceStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/listings/:kind", listingHandler.List)
	api.GET("/listings/:kind/:id", middleware.UUIDValidator("id"), listingHandler.Get)
	api.GET("/users/:id", middleware.UUIDValidator("id"), userHandler.Get)
	api.GET("/users/:id/vouches", middleware.UUIDValidator("id"), userHandler.Vouches)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", userHandler.Me)
		protected.POST("/users/:id/vouch", middleware.UUIDValidator("id"), userHandler.Vouch)

		protected.POST("/listings", listingHandler.Create)
		protected.PATCH("/listings/:kind/:id/status", middleware.UUIDValidator("id"), listingHandler.SetStatus)
		protected.DELETE("/listings/:kind/:id", middleware.UUIDValidator("id"), listingHandler.Delete)

		protected.POST("/trades", tradeHandler.Open)
		protected.GET("/trades", tradeHandler.ListMine)
		protected.GET("/trades/:id", middleware.UUIDValidator("id"), tradeHandler.Get)
		protected.POST("/trades/:id/confirm", middleware.UUIDValidator("id"), tradeHandler.Confirm)
		protected.POST("/trades/:id/cancel", middleware.UUIDValidator("id"), tradeHandler.Cancel)
		protected.POST("/trades/:id/dispute", middleware.UUIDValidator("id"), disputeHandler.File)
		protected.GET("/trades/:id/dispute", middleware.UUIDValidator("id"), disputeHandler.GetByTrade)

		protected.GET("/disputes", disputeHandler.ListMine)

		protected.GET("/conversations", conversationHandler.ListMine)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)

		protected.POST("/reports", reportHandler.File)
		protected.GET("/reports", reportHandler.ListMine)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.CountUnread)
		protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)

		protected.POST("/evidence", evidenceHandler.Upload)
		protected.DELETE("/evidence", evidenceHandler.Delete)
	}

	// Маршруты модераторов
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.AdminOnly())
	{
		admin.GET("/users/:id/trust", middleware.UUIDValidator("id"), userHandler.Trust)
		admin.POST("/users/:id/ban", middleware.UUIDValidator("id"), userHandler.SetBanned)
		admin.POST("/users/:id/verify", middleware.UUIDValidator("id"), userHandler.SetVerified)
		admin.POST("/users/:id/tier", middleware.UUIDValidator("id"), userHandler.SetTier)

		admin.GET("/trades/pending", tradeHandler.ListPending)
		admin.GET("/trades/:id/flags", middleware.UUIDValidator("id"), tradeHandler.Flags)
		admin.POST("/trades/:id/override", middleware.UUIDValidator("id"), disputeHandler.OverrideTrade)

		admin.GET("/disputes", disputeHandler.ListOpen)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)

		admin.GET("/reports", reportHandler.ListPending)
		admin.POST("/reports/:id/review", middleware.UUIDValidator("id"), reportHandler.Review)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings/:key", adminHandler.UpdateSetting)
		admin.GET("/audit", adminHandler.ListAudit)
	}

	return r
}
