package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/tenant-orders/internal/config"
	kafkax "github.com/ariefcatur/tenant-orders/internal/kafka"
	"github.com/ariefcatur/tenant-orders/internal/orders"
	"github.com/ariefcatur/tenant-orders/internal/projector"
	"github.com/ariefcatur/tenant-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if len(cfg.KafkaBrokers) == 0 || cfg.RedisAddr == "" {
		log.Fatalf("projector needs KAFKA_BROKERS and REDIS_ADDR")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// Service
	svc := &projector.Service{
		Dedup: &redisx.Deduper{Redis: rdb, Service: cfg.ServiceName + "-projector"},
		Stats: redisx.NewStatsCache(rdb, cfg.StatsCacheTTL),
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ProjectorGroup, orders.TopicOrderCreated, cfg.ProjectorWorkers)

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("projector consumer started: group=%s topic=%s workers=%d", cfg.ProjectorGroup, orders.TopicOrderCreated, cfg.ProjectorWorkers)
		if err := cons.Start(ctx, svc.HandleOrderCreated); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumer...")
	cancel()
	<-done
}
