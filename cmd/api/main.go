package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/admission-go-api/internal/config"
	"github.com/noah-isme/admission-go-api/internal/database"
	"github.com/noah-isme/admission-go-api/internal/handler"
	"github.com/noah-isme/admission-go-api/internal/middleware"
	"github.com/noah-isme/admission-go-api/internal/repository"
	"github.com/noah-isme/admission-go-api/internal/router"
	"github.com/noah-isme/admission-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database pool: %v", err)
	}
	healthChecks := []handler.DependencyCheck{{Name: "database", Probe: sqlDB.PingContext}}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		healthChecks = append(healthChecks, handler.DependencyCheck{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Drain()
		healthChecks = append(healthChecks, handler.DependencyCheck{Name: "nats", Probe: func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats connection %s", natsConn.Status())
			}
			return nil
		}})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	directory := repository.NewCachedProgramDirectory(store.Programs(), redisClient, cfg.ProgramCacheTTL, logger)
	numbers := service.NewNumberGenerator(directory, cfg.NumberFallbackCode, logger)
	events := service.NewNATSStatusPublisher(natsConn, cfg.EventChannel, logger)

	lifecycleService := service.NewLifecycleService(store, directory, store.Documents(), numbers, events, validate, logger)

	applicationHandler := handler.NewApplicationHandler(lifecycleService, logger)
	adminApplicationHandler := handler.NewAdminApplicationHandler(lifecycleService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		ApplicationHandler:      applicationHandler,
		AdminApplicationHandler: adminApplicationHandler,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		WriteLimiter:            middleware.RateLimit("applications", cfg.WriteRateLimit, cfg.WriteRateWindow),
		HealthChecks:            healthChecks,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
