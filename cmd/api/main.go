package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/tenant-orders/internal/config"
	"github.com/ariefcatur/tenant-orders/internal/httpx"
	kafkax "github.com/ariefcatur/tenant-orders/internal/kafka"
	"github.com/ariefcatur/tenant-orders/internal/memstore"
	"github.com/ariefcatur/tenant-orders/internal/mongox"
	"github.com/ariefcatur/tenant-orders/internal/orders"
	"github.com/ariefcatur/tenant-orders/internal/postgres"
	"github.com/ariefcatur/tenant-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store %s: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	oh := &httpx.OrdersHandler{
		Orders:  orders.NewService(store),
		Service: cfg.ServiceName,
		Timeout: cfg.RequestTimeout,
	}

	// Redis (opsional): cache stats
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Printf("redis %s unreachable, stats cache still enabled: %v", cfg.RedisAddr, err)
		}
		oh.Cache = redisx.NewStatsCache(rdb, cfg.StatsCacheTTL)
	}

	// Kafka producer (opsional)
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
		prod.Start(ctx)
		oh.Events = prod
	}

	router := httpx.NewRouter()
	oh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
}

// openStore connects the configured backend and prepares its indexes.
func openStore(ctx context.Context, cfg config.Config) (orders.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return &postgres.Store{DB: db}, db.Close, nil

	case config.DriverMemory:
		log.Println("using in-memory store; data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	client, err := mongox.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	disconnect := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}
	s := mongox.NewStore(client.Database(cfg.MongoDB))
	if err := s.EnsureIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, err
	}
	return s, disconnect, nil
}
