package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/auth"
	"github.com/nnlgsakib/npo-web/internal/config"
	"github.com/nnlgsakib/npo-web/internal/handler"
	"github.com/nnlgsakib/npo-web/internal/httpmiddleware"
	"github.com/nnlgsakib/npo-web/internal/kvstore"
	"github.com/nnlgsakib/npo-web/internal/logging"
	"github.com/nnlgsakib/npo-web/internal/members"
	"github.com/nnlgsakib/npo-web/internal/posts"
	"github.com/nnlgsakib/npo-web/internal/txns"
	"github.com/nnlgsakib/npo-web/internal/upload"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	db, err := kvstore.Open(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := db.Verify(); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}
	logger.Info("store ready", zap.String("dir", cfg.DataDir))

	seq := kvstore.NewSequence(db, logger)

	var postsStore posts.Store
	switch cfg.PostsBackend {
	case "file":
		fs, err := posts.NewFileStore(cfg.PostsFile, logger)
		if err != nil {
			return fmt.Errorf("posts file store: %w", err)
		}
		postsStore = fs
		logger.Info("posts backend: file", zap.String("path", cfg.PostsFile))
	default:
		postsStore = posts.NewKVStore(db, seq, logger)
	}

	txnSvc := txns.New(db, seq, logger)
	memberSvc := members.New(db, cfg.StrictMembership, logger)

	uploads, err := upload.NewManager(cfg.UploadDir, logger)
	if err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		limiter = httpmiddleware.NewRedisLimiter(client, cfg.RateLimitPerMin, logger)
		logger.Info("rate limiter: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger, "/health", "/metrics"))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RateLimit(limiter))
	r.Use(httpmiddleware.Metrics(reg))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	r.Static(posts.UploadRoute, uploads.Dir())

	h := handler.New(postsStore, txnSvc, memberSvc, uploads, handler.Options{
		AdminKey:      cfg.AdminKey,
		JWTSigningKey: cfg.JWTSigningKey,
		JWTIssuer:     cfg.JWTIssuer,
		TokenTTL:      cfg.AdminTokenTTL,
	}, logger)
	h.Register(r, auth.AdminOnly(cfg.AdminKey, cfg.JWTSigningKey, cfg.JWTIssuer, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
	return nil
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+auth.AdminKeyHeader)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production.
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
