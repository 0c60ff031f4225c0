// Comando broadcast dispara uma notificação para todos os inscritos sem
// passar pelo servidor HTTP. Usa a mesma configuração do gateway.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"delivery-gateway/config"
	"delivery-gateway/logging"
	"delivery-gateway/push"
	pushapp "delivery-gateway/push/application"
	"delivery-gateway/push/domain"
	pushinfra "delivery-gateway/push/infra"
	"delivery-gateway/storage"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "optional YAML config file")
		title      = flag.String("title", "", "notification title")
		body       = flag.String("body", "", "notification body")
		url        = flag.String("url", "", "url opened on click")
		schedule   = flag.String("schedule", "", "run a configured schedule by name instead of -title/-body/-url")
		genVAPID   = flag.Bool("gen-vapid", false, "print a new VAPID key pair and exit")
	)
	flag.Parse()

	if *genVAPID {
		priv, pub, err := pushinfra.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := storage.Open(ctx, storage.Config{Driver: cfg.DB.Driver, DSN: cfg.DB.DSN, BusyTimeout: cfg.DB.BusyTimeout})
	if err != nil {
		log.Fatal().Err(err).Msg("storage error")
	}
	defer func() { _ = db.Close() }()

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

	dispatcher := pushapp.NewDispatcher(pushinfra.NewSQLSubscriptionStore(db), transport, log, pushapp.Config{
		Workers:    cfg.Push.Workers,
		RatePerSec: cfg.Push.RatePerSec,
	})

	var rep domain.Report
	if *schedule != "" {
		s := push.NewScheduler(dispatcher, log, nil, cfg.Push.ScheduleTimeout)
		for _, sc := range cfg.Push.Schedules {
			if err := s.Add(push.Schedule(sc)); err != nil {
				log.Fatal().Err(err).Msg("push schedules error")
			}
		}
		rep, err = s.Trigger(ctx, *schedule)
	} else {
		rep, err = dispatcher.Broadcast(ctx, domain.NewPayload(*title, *body, *url))
	}
	if err != nil {
		log.Fatal().Err(err).Msg("broadcast failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rep)
}
