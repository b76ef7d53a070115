package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	"github.com/Mateusbmelzi/hub-entidades/internal/cache"
	"github.com/Mateusbmelzi/hub-entidades/internal/config"
	"github.com/Mateusbmelzi/hub-entidades/internal/database"
	"github.com/Mateusbmelzi/hub-entidades/internal/handler"
	"github.com/Mateusbmelzi/hub-entidades/internal/middleware"
	"github.com/Mateusbmelzi/hub-entidades/internal/queue"
	"github.com/Mateusbmelzi/hub-entidades/internal/repository"
	"github.com/Mateusbmelzi/hub-entidades/internal/router"
	"github.com/Mateusbmelzi/hub-entidades/internal/service"
)

func main() {
	envFile := flag.String("env-file", ".env", "file to seed the environment from")
	port := flag.String("port", "", "HTTP port (overrides APP_PORT)")
	store := flag.String("store", "", "mysql or memory (overrides STORE)")
	migrate := flag.Bool("migrate", false, "apply the embedded schema at startup (overrides DB_MIGRATE)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		slog.Error("env file", slog.Any("err", err))
		os.Exit(1)
	}
	// Flags win over the environment; Load decides what is required from STORE.
	if flag.CommandLine.Changed("store") {
		os.Setenv("STORE", *store)
	}
	if flag.CommandLine.Changed("port") {
		os.Setenv("APP_PORT", *port)
	}
	if flag.CommandLine.Changed("migrate") && *migrate {
		os.Setenv("DB_MIGRATE", "true")
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.Any("err", err))
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	policy, err := service.ParsePolicy(cfg.ValidationPolicy)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis backs the event cache and the rate limiter; both degrade
	// without it.
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.Warn("redis unavailable; using in-process cache and no rate limiting", slog.Any("err", err))
	} else {
		defer rdb.Close()
	}

	var pub service.Publisher = queue.NopPublisher{}
	if cfg.RabbitURL != "" {
		amqpPub := queue.NewAMQPPublisher(cfg.RabbitURL, log)
		defer amqpPub.Close()
		pub = amqpPub
		if cfg.AuditConsumer {
			consumer := queue.NewConsumer(cfg.RabbitURL, queue.NewAuditLog(os.Getenv("AUDIT_LOG_PATH")), log)
			go func() { _ = consumer.Run(ctx) }()
		}
	}

	opts := service.Options{Publisher: pub, Cache: newEventCache(config.LoadCacheConfig(), rdb, log), Logger: log}
	validator := service.NewValidator(st, policy, log)
	reservations := handler.NewReservationHandler(service.NewReservations(st, validator, opts), log)
	events := handler.NewEventHandler(service.NewEventLinks(st, opts), log)
	phases := handler.NewPhaseHandler(service.NewPhaseLinks(st, validator, opts), log)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))
	router.RegisterRoutes(e, st)
	router.RegisterPublic(e, handler.NewRoomHandler(st, log), events)
	router.RegisterMember(e, reservations, cfg.JWTSecret, limit)
	router.RegisterEntity(e, events, phases, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, reservations, cfg.JWTSecret, limit)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", ":"+cfg.Port), slog.String("env", cfg.Env),
			slog.String("store", cfg.Store), slog.String("policy", string(policy)))
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Store, func(), error) {
	if cfg.Store == "memory" {
		log.Warn("using the in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("schema migrated")
	}
	return repository.NewSQLStore(db), func() { closeDB(db, log) }, nil
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if err := db.Close(); err != nil {
		log.Warn("close database", slog.Any("err", err))
	}
}

func newEventCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) cache.EventListCache {
	if !cfg.Enabled {
		return cache.Nop{}
	}
	if strings.EqualFold(cfg.Backend, "redis") && rdb != nil {
		return cache.NewRedis(rdb, cfg.Prefix, cfg.TTL)
	}
	log.Info("event cache in process memory", slog.Duration("ttl", cfg.TTL))
	return cache.NewMemory(cfg.TTL)
}
