package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/Bekzhanizb/habitly/cache"
	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/events"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/handlers"
	"github.com/Bekzhanizb/habitly/routes"
	"github.com/Bekzhanizb/habitly/services"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

func main() {
	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		panic(err)
	}

	if err := utils.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	utils.Logger.Info("starting_application", zap.String("db_driver", cfg.DB.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		utils.Logger.Fatal("db_connection_failed", zap.Error(err))
	}
	if err := db.Migrate(conn); err != nil {
		utils.Logger.Fatal("migration_failed", zap.Error(err))
	}
	gateway := db.NewGateway(conn, cfg.Transaction)

	hub := feed.NewHub()
	var notifier feed.Notifier = hub
	var responseCache *cache.Cache
	checks := map[string]func(context.Context) error{"db": gateway.Ping}

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			utils.Logger.Warn("redis_disabled", zap.Error(err))
		} else {
			defer client.Close()
			checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
			responseCache = cache.New(client)
			notifier = startBridge(ctx, client, hub)
		}
	}
	notifier = responseCache.Invalidating(notifier)

	var publisher events.Publisher = events.Noop{}
	if cfg.MQ.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			utils.Logger.Warn("event_publisher_disabled", zap.Error(err))
		} else {
			utils.Logger.Info("event_publisher_connected", zap.String("exchange", cfg.MQ.Exchange))
			publisher = amqpPublisher
			checks["mq"] = func(context.Context) error {
				if !amqpPublisher.IsConnected() {
					return errors.New("broker connection closed")
				}
				return nil
			}
		}
	}
	defer publisher.Close()

	habits := services.NewHabitRegistry(gateway, hub, notifier, publisher)
	completions := services.NewCompletionEngine(gateway, hub, notifier, publisher)
	reflections := services.NewReflectionLog(gateway, hub, notifier, publisher, cfg.Reflection)
	defer reflections.Close()

	tokens := utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	streamsDone := make(chan struct{})
	h := &handlers.Handler{
		Users:       gateway,
		Habits:      habits,
		Completions: completions,
		Reflections: reflections,
		Days:        services.NewDayService(habits, completions, reflections),
		Tokens:      tokens,
		UploadsDir:  cfg.Server.UploadsDir,
		Shutdown:    streamsDone,
	}
	if cfg.Firebase.CredentialsFile != "" {
		if verifier, err := firebaseVerifier(ctx, cfg.Firebase); err != nil {
			utils.Logger.Warn("firebase_disabled", zap.Error(err))
		} else {
			h.Firebase = verifier
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(h, routes.Options{
		Config: cfg,
		Tokens: tokens,
		Users:  gateway,
		Cache:  responseCache,
		Checks: checks,
	})

	startServer(ctx, router, cfg.Server, func() { close(streamsDone) })
}

// startBridge relays change notifications through Redis so streams on other
// instances see this instance's writes.
func startBridge(ctx context.Context, client *redis.Client, hub *feed.Hub) feed.Notifier {
	bridge := feed.NewRedisBridge(client, hub, "")
	if err := bridge.Start(ctx); err != nil {
		utils.Logger.Warn("feed_bridge_disabled", zap.Error(err))
		return hub
	}
	utils.Logger.Info("feed_bridge_started")
	return bridge
}

func firebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (handlers.TokenVerifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	utils.Logger.Info("firebase_auth_ready")
	return client, nil
}

// startServer serves until ctx ends. onShutdown runs when shutdown begins so
// long-lived streams can finish instead of holding it open.
func startServer(ctx context.Context, router http.Handler, cfg config.ServerConfig, onShutdown func()) {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	srv.RegisterOnShutdown(onShutdown)

	go func() {
		utils.Logger.Info("starting_http_server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Error("http_server_failed", zap.Error(err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("shutting_down_server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Error("server_forced_shutdown", zap.Error(err))
	}
	utils.Logger.Info("server_stopped")
}
