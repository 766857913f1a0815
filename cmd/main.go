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
	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/context-chat-service/internal/api"
	"github.com/fathima-sithara/context-chat-service/internal/auth"
	"github.com/fathima-sithara/context-chat-service/internal/cache"
	"github.com/fathima-sithara/context-chat-service/internal/chat"
	"github.com/fathima-sithara/context-chat-service/internal/config"
	"github.com/fathima-sithara/context-chat-service/internal/events"
	"github.com/fathima-sithara/context-chat-service/internal/kafka"
	"github.com/fathima-sithara/context-chat-service/internal/logger"
	"github.com/fathima-sithara/context-chat-service/internal/metrics"
	"github.com/fathima-sithara/context-chat-service/internal/repository"
	"github.com/fathima-sithara/context-chat-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(cfg.Server.Development)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	mc, err := repository.NewClient(context.Background(), cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo connect", "err", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	db := mc.Database(cfg.Mongo.DB)
	if err := repository.EnsureIndexes(context.Background(), db); err != nil {
		zlog.Fatalw("index creation", "err", err)
	}

	hub := ws.NewHub(zlog)
	wsrv := ws.NewServer(hub, zlog)

	svc := chat.NewService(repository.NewGroups(db), repository.NewMessages(db), hub, zlog)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		svc.WithGroupCache(cache.NewGroupCache(rdb, cfg.GroupTTL, zlog))
	}

	var kprod *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		kprod = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = kprod.Close() }()
		svc.WithMessageStream(kprod)
	}

	var npub *events.Publisher
	if cfg.NATS.URL != "" {
		npub, err = events.NewPublisher(cfg.NATS.URL)
		if err != nil {
			zlog.Fatalw("nats connect", "err", err)
		}
		defer npub.Close()
		svc.WithGroupEvents(npub)
	}

	var authz auth.Authorizer
	switch cfg.Auth.Mode {
	case "http":
		authz = auth.NewHTTPAuthorizer(cfg.Auth.ServiceURLs, cfg.AuthTimeout, zlog)
	default:
		authz = auth.NewAllowAll(zlog)
	}

	app := api.NewServer(cfg, svc, authz, wsrv, zlog)

	if cfg.Server.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
				zlog.Errorw("metrics server", "err", err)
			}
		}()
	}

	go func() {
		zlog.Infow("server starting", "port", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			zlog.Fatalw("server listen", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	zlog.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	zlog.Info("server stopped")
}
