package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/gamemarket-backend/internal/config"
	"github.com/ignatzorin/gamemarket-backend/internal/db"
	httpHandlers "github.com/ignatzorin/gamemarket-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/gamemarket-backend/internal/http/router"
	"github.com/ignatzorin/gamemarket-backend/internal/logger"
	"github.com/ignatzorin/gamemarket-backend/internal/repository"
	"github.com/ignatzorin/gamemarket-backend/internal/service"
	"github.com/ignatzorin/gamemarket-backend/internal/storage"
	"github.com/ignatzorin/gamemarket-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidenceStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	listingRepo := repository.NewListingRepository(dbConn)
	tradeRepo := repository.NewTradeRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	vouchRepo := repository.NewVouchRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	auditRepo := repository.NewAuditRepository(dbConn)
	settingsRepo := repository.NewSettingsRepository(dbConn)
	txRunner := repository.NewTxRunner(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	settingsService := service.NewSettingsService(settingsRepo, auditRepo, cfg.SettingsCacheTTL)
	riskService := service.NewRiskService(userRepo, listingRepo, disputeRepo, settingsService)
	listingService := service.NewListingService(txRunner, listingRepo, settingsService, hub)
	tradeService := service.NewTradeService(txRunner, tradeRepo, hub)
	disputeService := service.NewDisputeService(txRunner, disputeRepo, tradeRepo, hub)
	userService := service.NewUserService(userRepo, vouchRepo, tradeRepo, auditRepo, riskService)
	reportService := service.NewReportService(reportRepo, auditRepo)
	notificationService := service.NewNotificationService(notificationRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	userHandler := httpHandlers.NewUserHandler(userService)
	listingHandler := httpHandlers.NewListingHandler(listingService)
	tradeHandler := httpHandlers.NewTradeHandler(tradeService, riskService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService)
	conversationHandler := httpHandlers.NewConversationHandler(conversationRepo)
	reportHandler := httpHandlers.NewReportHandler(reportService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	evidenceHandler := httpHandlers.NewEvidenceHandler(evidenceStorage)
	adminHandler := httpHandlers.NewAdminHandler(settingsService, auditRepo)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		userHandler,
		listingHandler,
		tradeHandler,
		disputeHandler,
		conversationHandler,
		reportHandler,
		notificationHandler,
		evidenceHandler,
		adminHandler,
		wsHandler,
		healthHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
