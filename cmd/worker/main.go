package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/preetsahil/MP/internal/config"
	"github.com/preetsahil/MP/internal/metrics"
	"github.com/preetsahil/MP/internal/placement"
	"github.com/preetsahil/MP/internal/queue"
	"github.com/preetsahil/MP/internal/store"
	"github.com/preetsahil/MP/internal/worker"
)

// Worker consumes screening requests and records eligible applicants on the
// first step of each job's workflow.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.QueueBackend != config.BackendRedis {
		log.Fatalf("worker needs QUEUE_BACKEND=redis; the memory queue is drained inside the api process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store connect failed: %v", err)
	}
	defer func() { _ = backend.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()
	if !redisClient.Healthy(ctx) {
		log.Printf("warning: redis not reachable at %s, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, "placement:screening")
	svc := placement.NewService(backend.Store, q, placement.WithMetrics(metrics.New(prometheus.NewRegistry())))

	log.Printf("worker started with %d consumers, waiting for messages...", cfg.WorkerCount)
	if err := worker.Run(ctx, q, svc, cfg.WorkerCount); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
	log.Println("worker stopped")
}
