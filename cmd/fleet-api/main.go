package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/FleetPulse/config"
	"github.com/BearBump/FleetPulse/internal/broker/kafka"
	"github.com/BearBump/FleetPulse/internal/cache/rediscache"
	"github.com/BearBump/FleetPulse/internal/integrations/dispatch"
	"github.com/BearBump/FleetPulse/internal/integrations/dispatch/dispatchhttp"
	"github.com/BearBump/FleetPulse/internal/integrations/dispatch/fake"
	"github.com/BearBump/FleetPulse/internal/services/broadcast"
	"github.com/BearBump/FleetPulse/internal/services/fleet"
	"github.com/BearBump/FleetPulse/internal/storage/filesnapshot"
	"github.com/BearBump/FleetPulse/internal/storage/pgsnapshot"
	"github.com/BearBump/FleetPulse/internal/storage/saver"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	httpAddr := cfg.FleetPulse.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	offlineTimeout := time.Duration(cfg.FleetPulse.OfflineTimeoutMinutes) * time.Minute
	if offlineTimeout <= 0 {
		offlineTimeout = 10 * time.Minute
	}
	sweepInterval := time.Duration(cfg.FleetPulse.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = 60 * time.Second
	}
	keepAlive := time.Duration(cfg.FleetPulse.KeepAliveSeconds) * time.Second
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	saveDebounce := time.Duration(cfg.FleetPulse.SaveDebounceMillis) * time.Millisecond
	if saveDebounce <= 0 {
		saveDebounce = 500 * time.Millisecond
	}
	snapshotPath := cfg.FleetPulse.SnapshotPath
	if snapshotPath == "" {
		snapshotPath = "fleet_status.json"
	}
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "fleet.status.changed"
	}

	var repo fleet.SnapshotRepository
	switch cfg.FleetPulse.Storage {
	case "postgres":
		sslMode := cfg.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
		pg, err := pgsnapshot.New(connString)
		if err != nil {
			panic(err)
		}
		defer pg.Close()
		repo = pg
	default:
		repo = filesnapshot.New(snapshotPath)
	}

	var limiter *rediscache.RateLimiter
	if cfg.FleetPulse.WebhookRateLimitPerMinute > 0 {
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		limiter = rediscache.NewRateLimiter(redisAddr)
		defer func() { _ = limiter.Close() }()
	}

	var producer fleet.Producer
	if cfg.Kafka.Host != "" {
		brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
		kp := kafka.NewProducer(brokers)
		defer func() { _ = kp.Close() }()
		producer = kp
	}

	var dispatchClient dispatch.Client
	if cfg.FleetPulse.DispatchBaseURL != "" {
		dispatchClient = dispatchhttp.New(cfg.FleetPulse.DispatchBaseURL, cfg.FleetPulse.DispatchAPIKey)
	} else {
		slog.Warn("dispatch base url not configured, serving fake vehicle list")
		dispatchClient = fake.New()
	}

	store := fleet.NewStore(offlineTimeout)
	hub := broadcast.New()
	sv := saver.New(repo, store.Snapshot, saveDebounce)
	svc := fleet.NewService(store, hub, sv, producer, topic)
	sweeper := fleet.NewSweeper(svc, sweepInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Load(ctx, repo); err != nil {
		panic(err)
	}

	go func() {
		if err := sweeper.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("sweeper stopped", "error", err.Error())
		}
	}()
	go func() {
		if err := sv.Run(ctx); err != nil && err != context.Canceled {
			slog.Error("saver stopped", "error", err.Error())
		}
	}()

	if err := runAppServer(ctx, appOpts{
		httpAddr:    httpAddr,
		swaggerPath: os.Getenv("swaggerPath"),
		staticDir:   cfg.FleetPulse.StaticDir,

		webhookToken:       cfg.FleetPulse.WebhookToken,
		keepAlive:          keepAlive,
		rateLimitPerMinute: int64(cfg.FleetPulse.WebhookRateLimitPerMinute),

		svc:      svc,
		sweeper:  sweeper,
		hub:      hub,
		dispatch: dispatchClient,
		limiter:  limiter,
	}); err != nil && err != context.Canceled {
		panic(err)
	}
}
