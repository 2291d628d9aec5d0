package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"revox-adapter/internal/auth"
	"revox-adapter/internal/config"
	"revox-adapter/internal/credentials"
	"revox-adapter/internal/events"
	"revox-adapter/internal/revox"
	"revox-adapter/internal/webhook"
	"revox-adapter/pkg/logger"
	"revox-adapter/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	store, closeStore, err := openCredentialStore(rootCtx, cfg)
	if err != nil {
		log.Error("credential store init failed", "source", cfg.Credentials.Source, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(rootCtx, cfg, log)
	if err != nil {
		log.Error("event publisher init failed", "sink", cfg.Events.Sink, "err", err)
		os.Exit(1)
	}
	defer closePublisher()

	filter, _ := webhook.ParseFilter(cfg.Webhook.ResultFilter) // validated by config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:         cfg,
		authMW:      auth.RequireAccessToken(authManager),
		credentials: store,
		webhook: webhook.Handler{
			Normalizer: webhook.Normalizer{WebhookURL: cfg.Webhook.PublicURL, Now: time.Now},
			Filter:     filter,
			Secret:     cfg.Webhook.Secret,
			Publisher:  publisher,
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// dispatch runs items sequentially, each bounded by the revox timeout
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env,
			"credentials", cfg.Credentials.Source, "sink", cfg.Events.Sink, "webhook_path", cfg.Webhook.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func openCredentialStore(ctx context.Context, cfg config.Config) (credentials.Store, func(), error) {
	switch cfg.Credentials.Source {
	case config.CredentialsSourcePostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			return nil, nil, err
		}
		return credentials.NewPostgresStore(db), func() { _ = db.Close() }, nil
	default:
		return credentials.StaticStore{Credentials: revox.Credentials{
			APIKey:  cfg.Revox.APIKey,
			BaseURL: cfg.Revox.BaseURL,
		}}, func() {}, nil
	}
}

func openPublisher(ctx context.Context, cfg config.Config, log *slog.Logger) (webhook.Publisher, func(), error) {
	switch cfg.Events.Sink {
	case events.SinkRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			return nil, nil, err
		}
		p, err := events.NewRedisPublisher(rdb, cfg.Redis.Channel)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		return p, closer(log, "redis", rdb), nil
	case events.SinkAMQP:
		p, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.RoutingKey)
		if err != nil {
			return nil, nil, err
		}
		return p, closer(log, "amqp", p), nil
	default:
		return events.LogPublisher{Logger: log}, func() {}, nil
	}
}

func closer(log *slog.Logger, name string, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Error("close failed", "resource", name, "err", err)
		}
	}
}
