// fakepush imita um serviço de push para testes manuais de ponta a ponta.
//
// O último segmento do caminho decide a resposta:
//
//	/gone/<id>     410
//	/missing/<id>  404
//	/broken/<id>   500
//	/slow/<id>     201 depois de -slow
//	qualquer outro 201
//
// Com -seed N, grava N inscrições apontando para este servidor no banco
// configurado (DB_DRIVER/DB_DSN), metade com caminhos que falham.
package main

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"delivery-gateway/logging"
	"delivery-gateway/push/domain"
	pushinfra "delivery-gateway/push/infra"
	"delivery-gateway/server"
	"delivery-gateway/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"
)

func main() {
	var (
		addr     = flag.String("addr", ":8081", "listen address")
		slow     = flag.Duration("slow", 15*time.Second, "delay for /slow endpoints")
		seed     = flag.Int("seed", 0, "insert N subscriptions pointing at this server and exit")
		baseURL = flag.String("public-url", "http://localhost:8081", "base url written into seeded subscriptions")
	)
	flag.Parse()

	log := logging.New(logging.Config{Level: "debug"}, os.Stdout)

	if *seed > 0 {
		if err := seedSubscriptions(log, *seed, *baseURL); err != nil {
			log.Fatal().Err(err).Msg("seed failed")
		}
		return
	}

	var hits atomic.Int64
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/{kind}/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		kind := chi.URLParam(r, "kind")
		log.Info().Int64("hit", n).Str("kind", kind).Str("id", chi.URLParam(r, "id")).
			Bool("vapid", r.Header.Get("Authorization") != "").Msg("push received")

		switch kind {
		case "gone":
			w.WriteHeader(http.StatusGone)
		case "missing":
			w.WriteHeader(http.StatusNotFound)
		case "broken":
			w.WriteHeader(http.StatusInternalServerError)
		case "slow":
			select {
			case <-time.After(*slow):
			case <-r.Context().Done():
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusCreated)
		}
	})
	r.Get("/hits", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]int64{"hits": hits.Load()})
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := server.New(*addr, r)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Msg("fake push service listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}
}

var seedKinds = []string{"ok", "gone", "ok", "slow", "ok", "missing", "ok", "broken"}

func seedSubscriptions(log zerolog.Logger, n int, base string) error {
	ctx := context.Background()
	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "delivery.db"
	}

	db, err := storage.Open(ctx, storage.Config{Driver: driver, DSN: dsn})
	if err != nil {
		return err
	}
	defer db.Close()

	store := pushinfra.NewSQLSubscriptionStore(db)
	for i := 0; i < n; i++ {
		keys, err := browserKeys()
		if err != nil {
			return err
		}
		kind := seedKinds[i%len(seedKinds)]
		ep, err := store.Save(ctx, domain.Endpoint{
			URI:  fmt.Sprintf("%s/%s/%d", base, kind, i),
			Keys: keys,
		})
		if err != nil {
			return err
		}
		log.Debug().Str("id", ep.ID).Str("endpoint", ep.URI).Msg("seeded")
	}
	log.Info().Int("count", n).Str("dsn", dsn).Msg("subscriptions seeded")
	return nil
}

// browserKeys gera chaves válidas como um navegador faria.
func browserKeys() (domain.Keys, error) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return domain.Keys{}, err
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		return domain.Keys{}, err
	}
	return domain.Keys{
		P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:   base64.RawURLEncoding.EncodeToString(auth),
	}, nil
}
