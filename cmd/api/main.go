package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/preetsahil/MP/internal/auth"
	"github.com/preetsahil/MP/internal/config"
	"github.com/preetsahil/MP/internal/handler"
	"github.com/preetsahil/MP/internal/httpmiddleware"
	"github.com/preetsahil/MP/internal/metrics"
	"github.com/preetsahil/MP/internal/placement"
	"github.com/preetsahil/MP/internal/queue"
	"github.com/preetsahil/MP/internal/store"
	"github.com/preetsahil/MP/internal/worker"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	var q queue.Queue
	if cfg.QueueBackend == config.BackendMemory {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "placement:screening")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := placement.NewService(backend.Store, q, placement.WithMetrics(m))

	// Without redis there is no separate worker to drain the queue.
	if cfg.QueueBackend == config.BackendMemory {
		go func() {
			if err := worker.Run(ctx, q, svc, cfg.WorkerCount); err != nil {
				log.Printf("in-process worker stopped: %v", err)
			}
		}()
	}

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == config.BackendRedis {
		limiter = httpmiddleware.NewRedisLimiter(redisClient.Client, cfg.RateLimitPerMin, time.Minute, "placement:ratelimit")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Metrics(m))
	r.Use(httpmiddleware.RateLimit(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.GET("/healthz", func(c *gin.Context) {
		storeHealthy := backend.Healthy(c.Request.Context())
		redisHealthy := true
		if cfg.QueueBackend == config.BackendRedis || cfg.RateLimitBackend == config.BackendRedis {
			redisHealthy = redisClient.Healthy(c.Request.Context())
		}
		status := http.StatusOK
		if !storeHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "store": storeHealthy, "redis": redisHealthy})
	})

	v1 := r.Group("/v1", auth.Authenticate(cfg.JWTSigningKey, cfg.JWTIssuer))
	handler.New(svc).Register(v1)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on :%s (store=%s, queue=%s)", cfg.HTTPPort, cfg.StoreBackend, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}
	log.Println("server exited")
	return nil
}

