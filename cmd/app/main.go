package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ordering/cmd"
	"ordering/internal/adapters/out/postgres/historyrepo"
	"ordering/internal/adapters/out/postgres/orderrepo"
	"ordering/internal/adapters/out/postgres/routingrepo"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config := getConfigs(logger)

	gormDB := mustConnectDB(config, logger)
	mustMigrate(gormDB, logger)

	natsConn, err := nats.Connect(config.NatsURL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "url", config.NatsURL, "error", err)
		os.Exit(1)
	}
	defer natsConn.Close()

	app, err := cmd.NewCompositionRoot(config, gormDB, natsConn, logger)
	if err != nil {
		logger.Error("Failed to build composition root", "error", err)
		os.Exit(1)
	}
	defer app.EntityHost.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Subscriber.Start(ctx); err != nil {
		logger.Error("Failed to start kitchen subscriber", "error", err)
		os.Exit(1)
	}
	defer app.Subscriber.Stop()

	if err := app.Jobs.StartAll(); err != nil {
		logger.Error("Failed to start jobs", "error", err)
		os.Exit(1)
	}
	defer app.Jobs.StopAll()

	e := echo.New()
	e.HideBanner = true
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy")
	})
	app.Server.RegisterRoutes(e)

	go func() {
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", config.HTTPPort)); err != nil && err != http.ErrServerClosed {
			logger.Error("Web server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Web server shutdown failed", "error", err)
	}
}

func getConfigs(logger *slog.Logger) cmd.Config {
	if err := godotenv.Load(".env"); err != nil {
		logger.Warn("No .env file found, relying on environment", "error", err)
	}

	return cmd.Config{
		HTTPPort:          envOr("HTTP_PORT", "8080"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBName:            os.Getenv("DB_NAME"),
		DBSslMode:         envOr("DB_SSLMODE", "disable"),
		NatsURL:           envOr("NATS_URL", nats.DefaultURL),
		FinanceBaseURL:    os.Getenv("FINANCE_BASE_URL"),
		EntityPercent:     envInt("ROLLOUT_ENTITY_PERCENT", 34, logger),
		KeyedStorePercent: envInt("ROLLOUT_KEYEDSTORE_PERCENT", 33, logger),
		DurablePercent:    envInt("ROLLOUT_DURABLE_PERCENT", 33, logger),
		RecoveryWindow:    envDuration("RECOVERY_WINDOW", 30*time.Minute, logger),
		ServiceFeeRate:    envFloat("SERVICE_FEE_RATE", 0.10, logger),
		LoyaltyDiscount:   envFloat("LOYALTY_DISCOUNT", 0.05, logger),
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int, logger *slog.Logger) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warn("Invalid integer in environment, using fallback", "key", key, "value", raw)
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64, logger *slog.Logger) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Warn("Invalid float in environment, using fallback", "key", key, "value", raw)
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration, logger *slog.Logger) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("Invalid duration in environment, using fallback", "key", key, "value", raw)
		return fallback
	}
	return value
}

func mustConnectDB(config cmd.Config, logger *slog.Logger) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName, config.DBSslMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to database", "host", config.DBHost, "error", err)
		os.Exit(1)
	}
	return db
}

func mustMigrate(db *gorm.DB, logger *slog.Logger) {
	err := db.AutoMigrate(
		&orderrepo.OrderDTO{},
		&orderrepo.ItemDTO{},
		&routingrepo.RoutingDTO{},
		&historyrepo.HistoryRecordDTO{},
	)
	if err != nil {
		logger.Error("Failed to migrate database schema", "error", err)
		os.Exit(1)
	}
}
