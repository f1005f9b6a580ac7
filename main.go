// Package main provides the main entry point for the ad decisioning and
// impression-billing service.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videostreampro/adcore/app/handlers"
	"github.com/videostreampro/adcore/app/middleware"
	"github.com/videostreampro/adcore/app/router"
	"github.com/videostreampro/adcore/app/services"
	businessflow "github.com/videostreampro/adcore/business_flow"
	"github.com/videostreampro/adcore/config"
	"github.com/videostreampro/adcore/internal/cache"
	"github.com/videostreampro/adcore/money"
	"github.com/videostreampro/adcore/repository"
	"github.com/videostreampro/adcore/token"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupLogging attaches a rotating lumberjack.Logger as the standard log
// package's output when LoggingConfig asks for file output, leaving stdout
// logging untouched otherwise.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output != "file" && cfg.Output != "both" {
		return
	}
	if cfg.FilePath == "" {
		return
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		return
	}
	log.SetOutput(rotator)
}

// Application wires together the configured server and its background
// workers so main can start and stop them as a unit.
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting adcore application...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := config.ValidateProductionConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)
		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase opens the Postgres connection pool.
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache connects to Redis, backing the auth-claims and
// budget-memo TTLCache instances.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis so connectivity loss
// shows up in logs instead of surfacing only as scattered request failures.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if client == nil {
		return cancel
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires repositories, flows, handlers, middleware,
// and the router into a runnable Application.
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Repositories
	teamRepo := repository.NewTeamRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	adRepo := repository.NewAdRepository(db)
	impressionRepo := repository.NewImpressionRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	// Token services: RSA bearer tokens for team/user auth, HMAC tokens for
	// the short-lived, high-volume impression reservation token.
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	impressionCodec, err := token.NewCodec(cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize impression token codec: %w", err)
	}

	clock := money.SystemClock{}

	var claimsCache, budgetCache *cache.TTLCache
	if rc != nil {
		claimsCache = cache.New(rc, "auth-claims", cfg.Cache.AuthClaimsTTL)
		budgetCache = cache.New(rc, "ad-budget", cfg.Cache.BudgetMemoTTL)
	}

	revenueClient := services.NewCreatorRevenueClient(
		cfg.CreatorRevenue.MonetizationURL,
		cfg.CreatorRevenue.APIKey,
		cfg.CreatorRevenue.Timeout,
		cfg.CreatorRevenue.FailureRingSize,
	)

	// Flows
	servingParams := businessflow.ServingParams{
		Weights: businessflow.ScoringWeights{
			Tag:      cfg.AdServing.ScoringWeightTag,
			Category: cfg.AdServing.ScoringWeightCategory,
			Budget:   cfg.AdServing.ScoringWeightBudget,
			Bid:      cfg.AdServing.ScoringWeightBid,
		},
		MinScore:           cfg.AdServing.MinScore,
		MaxCandidates:      cfg.AdServing.MaxCandidates,
		CostPerViewCents:   cfg.AdServing.CostPerViewCents,
		ImpressionTTL:      cfg.AdServing.ImpressionTTL,
		MaxReserveAttempts: cfg.AdServing.MaxReserveAttempts,
	}

	adServerFlow := businessflow.NewAdServerFlow(adRepo, campaignRepo, impressionRepo, impressionCodec, clock, servingParams, db)
	impressionFlow := businessflow.NewImpressionFlow(impressionRepo, adRepo, campaignRepo, impressionCodec, clock, revenueClient, db)
	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, teamRepo, walletRepo, db, budgetCache)
	adFlow := businessflow.NewAdFlow(adRepo, campaignRepo, db, budgetCache)

	// Handlers
	servingHandler := handlers.NewServingHandler(adServerFlow)
	impressionHandler := handlers.NewImpressionHandler(impressionFlow)
	campaignHandler := handlers.NewCampaignHandler(campaignFlow)
	adHandler := handlers.NewAdHandler(adFlow)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, claimsCache)

	appRouter := router.NewFiberRouter(
		servingHandler,
		impressionHandler,
		campaignHandler,
		adHandler,
		authMiddleware,
		cfg.Security.PublicRateLimit,
		cfg.Security.AuthRateLimit,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
