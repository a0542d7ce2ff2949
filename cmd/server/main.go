package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tutorwallet/config"
	"tutorwallet/internal/database"
	"tutorwallet/internal/events"
	"tutorwallet/internal/router"
	"tutorwallet/internal/service"
	"tutorwallet/pkg/log"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := log.New(cfg.App.Name, cfg.Log.Level)
	if err := run(cfg, logger); err != nil {
		logger.Error("main", err.Error(), "run", "")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger log.Log) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var infra router.Infra
	generator, closeGenerator, err := service.NewTutorGenerator(ctx, cfg.Tutor)
	if err != nil {
		return fmt.Errorf("tutor generator: %w", err)
	}
	defer closeGenerator()
	infra.Generator = generator
	if cfg.Tutor.APIKey == "" {
		logger.Warn("main", "AI tutor disabled: set TUTOR_API_KEY to enable", "run", "")
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		infra.SweepLock = service.NewRedisSweepLock(rdb, cfg.App.Name+":monitor:sweep", cfg.Monitor.LockTTL)
	}

	switch cfg.Events.Broker {
	case "nats":
		p, err := events.ConnectNats(cfg.Events.NatsURL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer p.Close()
		infra.Publisher = p
	case "kafka":
		p, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer p.Close()
		infra.Publisher = p
	}

	if fcm := service.NewFCMService(ctx, cfg.Firebase.ServiceAccountPath, logger); fcm != nil {
		infra.Push = fcm
		logger.Info("main", "push notifications enabled", "run", "")
	} else {
		logger.Info("main", "push notifications disabled: set FIREBASE_SERVICE_ACCOUNT_PATH to enable", "run", "")
	}

	app := router.Setup(cfg, db, infra, logger)
	defer app.Close()
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("main", "server listening on :"+cfg.Server.Port, "run", "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		app.Monitor.Start(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("main", "shutting down", "run", "")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
