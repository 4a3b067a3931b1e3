package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toyshop/internal/cart"
	"toyshop/internal/config"
	"toyshop/internal/database"
	"toyshop/internal/events"
	"toyshop/internal/logging"
	"toyshop/internal/models"
	"toyshop/internal/repositories"
	"toyshop/internal/server"
	"toyshop/internal/services"
	"toyshop/internal/session"
	"toyshop/internal/storage"
	"toyshop/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Env: cfg.AppEnv})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("toyshop stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// --- Database ---
	db, err := database.Open(ctx, database.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DatabaseDSN,
		Name:   cfg.DatabaseName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()
	logger.Info("database ready", zap.String("driver", cfg.DBDriver))

	toyRepo := repositories.NewGORMToyRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	if cfg.SeedDemoData {
		seedToys(ctx, toyRepo, logger)
	}

	// --- Optional Redis: sessions and checkout token ledger ---
	var sessionStorage, csrfStorage fiber.Storage
	var ledger services.TokenLedger = services.NewMemoryTokenLedger()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return errors.Join(errors.New("redis is configured but unreachable"), err)
		}
		defer rdb.Close()
		sessionStorage = session.NewRedisStorage(rdb, "toyshop:session:")
		csrfStorage = session.NewRedisStorage(rdb, "toyshop:csrf:")
		ledger = services.NewRedisTokenLedger(rdb, "toyshop:checkout:")
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}

	// --- Optional RabbitMQ: order events and the notification hook ---
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = events.NewBrokerPublisher(mqClient, logger)
		if err := mqClient.Consume(events.NotificationHook(logger)); err != nil {
			return err
		}
	}

	// --- Services ---
	images, err := storage.NewImageStore(cfg.UploadDir)
	if err != nil {
		return err
	}
	authService := services.NewAuthService(userRepo, services.AdminCredentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}, logger)
	toyService := services.NewToyService(toyRepo, images, logger)
	cartService := services.NewCartService(toyRepo, logger)
	checkoutService := services.NewCheckoutService(toyRepo, orderRepo, authService, publisher, logger)
	orderService := services.NewOrderService(orderRepo, userRepo, publisher, logger)
	statsService := services.NewStatsService(toyRepo, userRepo, orderRepo, logger)
	tokens := services.NewCheckoutTokens(cfg.SessionSecret, cfg.CheckoutTokenTTL, ledger)

	app := server.New(server.Options{
		Logger: logger,
		Sessions: session.NewManager(session.Config{
			Expiration: cfg.SessionTTL,
			Secure:     cfg.IsProduction(),
			Storage:    sessionStorage,
		}, logger),
		CSRFStorage:   csrfStorage,
		Auth:          authService,
		Toys:          toyService,
		Carts:         cartService,
		Checkout:      checkoutService,
		Orders:        orderService,
		Stats:         statsService,
		Tokens:        tokens,
		UploadDir:     images.Dir(),
		SecureCookies: cfg.IsProduction(),
		AccessLog:     true,
		Ready:         pingDB(db),
	})

	// --- Start HTTP Server ---
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.AppPort), zap.String("env", cfg.AppEnv))
		listenErr <- app.Listen(cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}

func pingDB(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// seedToys fills an empty catalog with a few demo toys.
func seedToys(ctx context.Context, repo repositories.ToyRepository, logger *zap.Logger) {
	count, err := repo.Count(ctx)
	if err != nil {
		logger.Warn("skipping demo data, cannot count toys", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	toys := []models.Toy{
		{Name: "Wooden Train Set", Description: "Classic wooden train with 12 tracks", Price: decimal.RequireFromString("34.99"), Stock: 10},
		{Name: "Plush Bear", Description: "Soft brown teddy bear", Price: decimal.RequireFromString("19.50"), Stock: 25},
		{Name: "Building Blocks", Description: "Bucket of 100 colorful blocks", Price: decimal.RequireFromString("24.00"), Stock: 15},
	}
	for i := range toys {
		toys[i].ImagePath = cart.DefaultImage
		if err := repo.Create(ctx, &toys[i]); err != nil {
			logger.Warn("error seeding toy", zap.String("name", toys[i].Name), zap.Error(err))
			continue
		}
		logger.Info("seeded toy", zap.String("name", toys[i].Name), zap.String("toy_id", toys[i].ID))
	}
}
