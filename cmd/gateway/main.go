package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delivery-gateway/config"
	"delivery-gateway/logging"
	"delivery-gateway/middleware/ratelimit"
	"delivery-gateway/middleware/ratelimit/domain"
	"delivery-gateway/middleware/ratelimit/infra"
	"delivery-gateway/push"
	pushapp "delivery-gateway/push/application"
	pushinfra "delivery-gateway/push/infra"
	"delivery-gateway/server"
	"delivery-gateway/storage"
	vsapp "delivery-gateway/videosync/application"
	vsinfra "delivery-gateway/videosync/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "optional YAML config file")
	flag.Parse()

	boot := logging.New(logging.Config{Level: "info"}, os.Stderr)

	loader := config.NewLoader(*configPath)
	cfg, err := loader.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config error")
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stdout)
	loader.Watch(func(next config.Config, err error) {
		if err != nil {
			log.Warn().Err(err).Msg("config reload rejected")
			return
		}
		lvl := logging.SetLevel(next.Log.Level)
		log.Info().Str("level", lvl.String()).Msg("config reloaded")
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(ctx, storage.Config{
		Driver:      cfg.DB.Driver,
		DSN:         cfg.DB.DSN,
		BusyTimeout: cfg.DB.BusyTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("storage error")
	}
	defer func() { _ = db.Close() }()

	store := infra.NewWindowStore(
		infra.WithWindow(cfg.Rate.Window),
		infra.WithSweepEvery(cfg.Rate.SweepEvery),
	)
	janitorDone := store.StartJanitor(ctx)

	var statsStore interface {
		domain.StatsStore
		domain.StatsReader
	}
	if cfg.Rate.Stats.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Rate.Stats.RedisAddr,
			Password: cfg.Rate.Stats.RedisPassword,
			DB:       cfg.Rate.Stats.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("redis stats ping error")
		}

		statsStore = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Rate.Stats.Prefix),
			infra.WithStatsTTL(cfg.Rate.Stats.TTL),
			infra.WithStatsBucket(cfg.Rate.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Rate.Stats.TrackKeys),
		)
	} else {
		statsStore = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Rate.Stats.TrackKeys))
	}

	rateMax := cfg.Rate.Max
	if !cfg.Rate.Enabled {
		rateMax = 0
	}

	deps := server.Deps{
		Log: log,
		RateLimit: ratelimit.Options{
			Limiter: store,
			Stats:   statsStore,
			Max:     rateMax,
			Scope:   cfg.Rate.Scope,
		},
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.Concurrency.Max,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.Concurrency.Timeout,
		},
		Video:   vsapp.NewSink(vsinfra.NewSQLLessonStore(db), log),
		Ping:    db.PingContext,
		Entries: store.Len,
		Stats:   statsStore,
		Slots:   infra.NewChanPool(cfg.Concurrency.Max),
	}

	var scheduler *push.Scheduler
	if cfg.Push.Enabled {
		transport, err := pushinfra.NewWebPushTransport(pushinfra.WebPushConfig{
			PublicKey:  cfg.VAPID.PublicKey,
			PrivateKey: cfg.VAPID.PrivateKey,
			Subscriber: cfg.VAPID.Subject,
			TTL:        cfg.Push.TTL,
			Urgency:    cfg.Push.Urgency,
			Timeout:    cfg.Push.Timeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("push transport error")
		}

		subs := pushinfra.NewSQLSubscriptionStore(db)
		dispatcher := pushapp.NewDispatcher(subs, transport, log, pushapp.Config{
			Workers:    cfg.Push.Workers,
			RatePerSec: cfg.Push.RatePerSec,
		})

		scheduler, err = newScheduler(dispatcher, log, cfg.Push)
		if err != nil {
			log.Fatal().Err(err).Msg("push schedules error")
		}
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("push scheduler start error")
		}

		deps.Push = &server.PushDeps{
			Broadcaster:    dispatcher,
			Registrar:      pushapp.Subscriptions{Store: subs, Log: log},
			VAPIDPublicKey: transport.PublicKey(),
		}
	}

	srv := server.New(cfg.ListenAddr, server.NewRouter(deps))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("db", cfg.DB.Driver).
		Str("config", loader.Path()).
		Msg("gateway listening")
	log.Info().
		Bool("enabled", cfg.Rate.Enabled).
		Int("max", cfg.Rate.Max).
		Dur("window", store.Window()).
		Dur("sweep_every", store.SweepEvery()).
		Str("scope", cfg.Rate.Scope).
		Msg("rate limit")
	log.Info().
		Bool("enabled", cfg.Rate.Stats.Enabled).
		Str("redis_addr", cfg.Rate.Stats.RedisAddr).
		Str("bucket", cfg.Rate.Stats.Bucket).
		Dur("ttl", cfg.Rate.Stats.TTL).
		Bool("track_keys", cfg.Rate.Stats.TrackKeys).
		Msg("rate stats")
	log.Info().
		Int("max", cfg.Concurrency.Max).
		Dur("acquire_timeout", cfg.Concurrency.Timeout).
		Msg("concurrency")
	log.Info().
		Bool("enabled", cfg.Push.Enabled).
		Int("workers", cfg.Push.Workers).
		Int("rate_per_sec", cfg.Push.RatePerSec).
		Int("schedules", len(cfg.Push.Schedules)).
		Msg("push")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
	<-janitorDone
	log.Info().Msg("gateway stopped")
}

func newScheduler(b push.Broadcaster, log zerolog.Logger, cfg config.PushConfig) (*push.Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	s := push.NewScheduler(b, log, loc, cfg.ScheduleTimeout)
	for _, sc := range cfg.Schedules {
		if err := s.Add(push.Schedule(sc)); err != nil {
			return nil, err
		}
	}
	return s, nil
}
