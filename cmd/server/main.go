package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/soulbahprojet/solutions224-backend/internal/config"
	"github.com/soulbahprojet/solutions224-backend/internal/db"
	httpHandlers "github.com/soulbahprojet/solutions224-backend/internal/http/handlers"
	httpRouter "github.com/soulbahprojet/solutions224-backend/internal/http/router"
	"github.com/soulbahprojet/solutions224-backend/internal/kafka"
	"github.com/soulbahprojet/solutions224-backend/internal/logger"
	"github.com/soulbahprojet/solutions224-backend/internal/provider"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
	"github.com/soulbahprojet/solutions224-backend/internal/service"
	"github.com/soulbahprojet/solutions224-backend/internal/ws"
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
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
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

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	orderRepo := repository.NewOrderRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	ledgerRepo := repository.NewLedgerRepository(dbConn)

	// Движение средств: реальный провайдер или заглушка без внешних вызовов.
	var mover service.FundsMover
	if cfg.ProviderBaseURL != "" {
		mover = provider.NewClient(cfg.ProviderBaseURL, cfg.ProviderSecretKey, cfg.ProviderHTTPTimeout)
	} else {
		mover = provider.NoopMover{}
		log.Printf("main: PROVIDER_BASE_URL не задан, переводы подтверждаются локально")
	}

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	orderService := service.NewOrderService(orderRepo, cfg.DefaultCurrency)
	escrowService := service.NewEscrowService(escrowRepo, mover, cfg.CommissionRate, cfg.AutoReleaseDays)

	// Kafka (опционально).
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Printf("main: ошибка закрытия kafka writer: %v", err)
			}
		}()
		escrowService.SetPublisher(publisher)
	}

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()
	escrowService.SetNotifier(hub)

	// Авто-release просроченных escrow.
	go runAutoRelease(ctx, escrowService, cfg.AutoReleasePeriod)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	orderHandler := httpHandlers.NewOrderHandler(orderService)
	webhookHandler := httpHandlers.NewWebhookHandler(escrowService, cfg.WebhookSecret)
	escrowHandler := httpHandlers.NewEscrowHandler(escrowService)
	ledgerHandler := httpHandlers.NewLedgerHandler(ledgerRepo)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, authHandler, orderHandler, webhookHandler, escrowHandler, ledgerHandler, wsHandler, healthHandler, tokenManager)

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

// runAutoRelease периодически выплачивает held escrow с истёкшим сроком.
func runAutoRelease(ctx context.Context, escrows *service.EscrowService, period time.Duration) {
	if period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := escrows.ReleaseExpired(ctx); err != nil && logger.Log != nil {
				logger.Log.WithError(err).Error("main: проход авто-release завершился с ошибкой")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
