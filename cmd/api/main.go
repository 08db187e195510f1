package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/msgpilot/backend/internal/config"
	"github.com/msgpilot/backend/internal/gateway/paypro"
	"github.com/msgpilot/backend/internal/handler"
	"github.com/msgpilot/backend/internal/middleware"
	"github.com/msgpilot/backend/internal/repository"
	"github.com/msgpilot/backend/internal/routes"
	"github.com/msgpilot/backend/internal/service"
	pkgcache "github.com/msgpilot/backend/pkg/cache"
	"github.com/msgpilot/backend/pkg/i18n"
	"github.com/msgpilot/backend/pkg/jwt"
	pkglogger "github.com/msgpilot/backend/pkg/logger"
	pkgredis "github.com/msgpilot/backend/pkg/redis"
	pkgstorage "github.com/msgpilot/backend/pkg/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           MsgPilot Billing API
// @version         1.0
// @description     Subscriptions, message quota and PayPro Global integration
//
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	log := pkglogger.GetLogger()
	log.Info().Str("app_env", env).Strs("env_files", dotenvFiles).Msg("starting")

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config.LogResolved(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config) error {
	log := pkglogger.GetLogger()

	db, err := initDB(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Redis is optional: without it the cache, IPN lock and rate limits are off
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient, err = pkgredis.NewClient(pkgredis.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	cacheService := pkgcache.NewService(redisClient)

	var archive service.PayloadArchiver
	if cfg.Storage.Enabled {
		s3Client, err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
		})
		if err != nil {
			return fmt.Errorf("init ipn archive: %w", err)
		}
		archive = s3Client
	}

	gateway := paypro.NewGateway(cfg.PayPro.Gateway())
	if gateway.TestMode() {
		log.Warn().Msg("paypro test mode is enabled")
	}

	store := repository.NewBillingStore(db)
	billingService := service.NewBillingService(store, gateway, cacheService, archive)
	subscriptionService := service.NewSubscriptionService(store, gateway, cacheService)
	checkoutService := service.NewCheckoutService(gateway)

	msgs := i18n.NewDefaultBundle()
	if _, err := os.Stat("i18n"); err == nil {
		if err := msgs.LoadDir("i18n"); err != nil {
			log.Warn().Err(err).Msg("i18n LoadDir failed")
		}
	}

	auditLogger := middleware.NewAuditLogger(db)
	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router.Use(cors.New(corsConfig(cfg.CORS.AllowOrigins)))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())
	if redisClient != nil && !cfg.IsDevelopment() {
		router.Use(middleware.RateLimit(redisClient, middleware.DefaultRateLimitConfig()))
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status, code := "ok", http.StatusOK
		if err := sqlDB.PingContext(ctx); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"service": "msgpilot-backend",
			"redis":   cacheService.IsAvailable(),
			"time":    time.Now().Unix(),
		})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.Setup(router,
		handler.NewBillingHandler(checkoutService, subscriptionService, msgs),
		handler.NewWebhookHandler(billingService),
		handler.NewAdminHandler(billingService, subscriptionService, auditLogger, msgs),
		handler.NewUsageHandler(subscriptionService, msgs),
		auditLogger,
		jwtManager,
		redisClient,
		cfg.Billing.InternalAPIKey,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runSweeper(ctx, subscriptionService, cfg.Billing.ExpireInterval, func() {
			middleware.SetDBConnectionsInUse(sqlDB.Stats().InUse)
		})
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runSweeper expires overdue subscriptions every interval until ctx ends
func runSweeper(ctx context.Context, subs *service.SubscriptionService, interval time.Duration, tick func()) {
	log := pkglogger.GetLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
			if _, err := subs.ExpireOverdue(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

func corsConfig(allowOrigins string) cors.Config {
	origins := splitAndTrim(allowOrigins, ",")
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Locale", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}
}

// splitAndTrim splits a string by delimiter and drops empty parts
func splitAndTrim(s string, delimiter string) []string {
	parts := []string{}
	for _, part := range strings.Split(s, delimiter) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// initDB opens the MySQL connection pool
func initDB(cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}
