package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"taskchat/internal/app/chatsync"
	"taskchat/internal/app/policies"
	"taskchat/internal/infra/api"
	"taskchat/internal/infra/broker/kafka"
	"taskchat/internal/infra/config"
	mongodb "taskchat/internal/infra/db/mongo"
	ginserver "taskchat/internal/infra/http/gin"
	"taskchat/internal/infra/inbox"
	"taskchat/internal/infra/notify"
	"taskchat/internal/infra/obs"
	"taskchat/internal/infra/presence"
	"taskchat/internal/infra/push"
	"taskchat/internal/infra/storage/memory"
	"taskchat/internal/infra/storage/s3"
)

func main() {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(getenv("APP_ENV", "dev"))
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn(".env not loaded", "error", envErr)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	app.controller.Start(ctx)
	if err := app.controller.ListConversations(ctx); err != nil {
		logger.Warn("initial conversation load failed", "error", err)
	}

	go func() {
		if err := app.push.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("push client stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, ginserver.Handlers{
		Chat: ginserver.ChatHandler{Controller: app.controller, Logger: logger},
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP bridge starting", "addr", cfg.HTTPAddr, "user_id", cfg.UserID)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP bridge stopped")
}

type application struct {
	controller *chatsync.Controller
	push       *push.Client
	checks     map[string]obs.Check
	closers    []func(context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}

	backend := api.New(
		api.WithBaseURL(cfg.APIBaseURL),
		api.WithToken(cfg.APIToken),
		api.WithTimeout(cfg.RESTTimeout),
		api.WithLogger(logger),
	)

	pushClient, err := push.NewClient(push.Config{
		URL:            cfg.PushURL,
		UserID:         cfg.UserID,
		Token:          cfg.APIToken,
		ReconnectDelay: cfg.PushReconnectDelay,
	}, logger)
	if err != nil {
		return nil, err
	}
	app.push = pushClient
	app.checks["push"] = obs.Connected(pushClient.Connected)

	var eventInbox chatsync.Inbox = memory.NewInbox(memory.DefaultInboxCapacity)
	if cfg.MongoURI != "" {
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB, 10*time.Second)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		app.checks["mongo"] = client.Ping
		store := inbox.NewStore(client.DB, cfg.UserID)
		if err := store.EnsureIndexes(ctx, inbox.DefaultRetention); err != nil {
			logger.Warn("inbox indexes not created", "error", err)
		}
		eventInbox = store
		logger.Info("push inbox backed by mongo", "db", cfg.MongoDB, "collection", inbox.Collection)
	}

	notifiers := notify.Fanout{notify.LogNotifier{Logger: logger}}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("taskchat-"+cfg.UserID))
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		notifiers = append(notifiers, kafka.Notifier{Producer: producer, Topic: cfg.KafkaNotifyTopic, UserID: cfg.UserID})
		logger.Info("notifications published to kafka", "topic", cfg.KafkaNotifyTopic)
	}

	var online chatsync.PresenceStore = memory.NewPresenceStore()
	if cfg.RedisURL != "" {
		store, err := presence.NewRedisStore(cfg.RedisURL, cfg.UserID)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return store.Close() })
		app.checks["redis"] = store.Ping
		online = store
	}

	var images chatsync.Uploader
	if cfg.S3Enabled() {
		uploader, err := s3.NewClient(s3.Config{
			Endpoint:       cfg.S3Endpoint,
			PublicEndpoint: cfg.S3PublicEndpoint,
			AccessKey:      cfg.S3AccessKey,
			SecretKey:      cfg.S3SecretKey,
			Bucket:         cfg.S3Bucket,
			UseSSL:         cfg.S3UseSSL,
		}, logger)
		if err != nil {
			app.close(logger)
			return nil, err
		}
		app.checks["s3"] = uploader.Ping
		images = uploader
	}

	controller, err := chatsync.NewController(chatsync.Dependencies{
		Backend:  backend,
		Push:     pushClient,
		Notifier: notifierOrNil(notifiers),
		Inbox:    eventInbox,
		Presence: online,
		Images:   images,
		Logger:   logger,
		PageSize: cfg.PageSize,
	})
	if err != nil {
		app.close(logger)
		return nil, err
	}
	app.controller = controller
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	if a.controller != nil {
		a.controller.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func notifierOrNil(f notify.Fanout) policies.Notifier {
	if len(f) == 0 {
		return nil
	}
	if len(f) == 1 {
		return f[0]
	}
	return f
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
