package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"agrichain/internal/config"
	"agrichain/internal/handlers"
	"agrichain/internal/logger"
	"agrichain/internal/middleware"
	"agrichain/internal/repositories"
	"agrichain/internal/services"
	"agrichain/pkg/rabbitmq"
)

// App is the wired service.
type App struct {
	Fiber  *fiber.App
	DB     *gorm.DB
	Tokens *services.TokenService
	Orders *services.OrderService
	Ledger *services.LedgerService
	mq     *rabbitmq.Client
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatal("failed to create app", zap.Error(err))
	}
	defer app.Close()

	if cfg.SeedDemoData {
		if err := seedDemoData(context.Background(), app); err != nil {
			log.Error("failed to seed demo data", zap.Error(err))
		}
	}

	log.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("chain", cfg.ChainName()),
		zap.Uint64("chain_id", cfg.ChainID))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down server")
	if err := app.Fiber.Shutdown(); err != nil {
		log.Error("error during Fiber shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}

// NewApp opens the store, connects the broker when enabled and registers
// every route.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.L()

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	// --- Repositories ---
	accountRepo := repositories.NewGORMAccountRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	produceRepo := repositories.NewCachedProduceRepository(repositories.NewGORMProduceRepository(db), cfg.ProduceCacheTTL)
	txRepo := repositories.NewGORMTransactionRepository(db)

	// --- Services ---
	resolver := services.NewOrderResolver(orderRepo, produceRepo)
	boards := services.NewBoardRegistry(resolver, orderRepo, cfg.ResolveConcurrency, cfg.BoardIdleTTL)
	ledger := services.NewLedgerService(repositories.NewGORMStore(db), txRepo, produceRepo, boards)
	tokens := services.NewTokenService(cfg.JWTSecret)

	app := &App{DB: db, Tokens: tokens, Ledger: ledger}

	var publisher services.TxPublisher = services.NewLocalDispatcher(ledger)
	broker := "local"
	if cfg.RabbitMQEnabled {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Logger: log.Named("rabbitmq")})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		handler := func(body []byte) error {
			return ledger.Handle(context.Background(), body)
		}
		if err := mq.ConsumeTransactions(handler); err != nil {
			mq.Close()
			return nil, fmt.Errorf("failed to start transaction consumer: %w", err)
		}
		app.mq = mq
		publisher = mq
		broker = "rabbitmq"
	}

	orderService := services.NewOrderService(accountRepo, orderRepo, produceRepo, txRepo, boards, publisher, cfg.ChainID)
	app.Orders = orderService

	// --- Fiber ---
	f := fiber.New(fiber.Config{
		AppName:      "agrichain",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	f.Use(fiberlogger.New())

	f.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"chain":    cfg.ChainName(),
			"chain_id": cfg.ChainID,
			"contract": cfg.ContractAddress,
			"broker":   broker,
		})
	})

	apiV1 := f.Group("/api/v1", middleware.ViewerRequired(tokens))
	handlers.NewOrderHandler(orderService).RegisterRoutes(apiV1)
	handlers.NewAccountHandler(orderService).RegisterRoutes(apiV1)
	handlers.NewProduceHandler(orderService).RegisterRoutes(apiV1)
	handlers.NewTransactionHandler(orderService).RegisterRoutes(apiV1)

	app.Fiber = f
	log.Info("app initialized", zap.String("db_driver", cfg.DBDriver), zap.String("broker", broker))
	return app, nil
}

// Close releases the broker connection and the database pool.
func (a *App) Close() error {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			logger.L().Error("failed to close RabbitMQ client", zap.Error(err))
		}
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.AppEnv == "test" {
		level = gormlogger.Silent
	}
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(level)}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = sqlite.Open(cfg.DatabaseDSN)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.DBDriver, err)
	}

	if cfg.DBDriver == "sqlite" {
		// sqlite allows one writer; a single connection serializes access.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}
