package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pushOff evita exigir chaves VAPID nos testes que não tratam de push.
func pushOff(t *testing.T) {
	t.Helper()
	t.Setenv("PUSH_ENABLED", "false")
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	pushOff(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected :8080, got %q", cfg.ListenAddr)
	}
	if cfg.Rate.Max != 60 || cfg.Rate.Window != time.Minute || cfg.Rate.SweepEvery != 5*time.Minute {
		t.Fatalf("unexpected rate defaults: %+v", cfg.Rate)
	}
	if cfg.DB.Driver != "sqlite" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("RATE_MAX", "5")
	t.Setenv("RATE_WINDOW", "30s")
	t.Setenv("RATE_STATS_ENABLED", "true")
	t.Setenv("RATE_STATS_REDIS_ADDR", "localhost:6379")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("VAPID_PUBLIC_KEY", "pub")
	t.Setenv("VAPID_PRIVATE_KEY", "priv")
	t.Setenv("PUSH_WORKERS", "4")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Rate.Max != 5 || cfg.Rate.Window != 30*time.Second {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !cfg.Rate.Stats.Enabled || cfg.Rate.Stats.RedisAddr != "localhost:6379" {
		t.Fatalf("stats env not applied: %+v", cfg.Rate.Stats)
	}
	if cfg.DB.Driver != "postgres" || cfg.Push.Workers != 4 || cfg.VAPID.PublicKey != "pub" || cfg.Log.Format != "json" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoad_FileWithSchedules(t *testing.T) {
	pushOff(t)
	path := writeFile(t, `
listen_addr: ":7070"
rate:
  max: 10
  window: 10s
push:
  schedules:
    - name: morning
      spec: "0 9 * * 1-5"
      title: Bom dia
      url: /aulas
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":7070" || cfg.Rate.Max != 10 || cfg.Rate.Window != 10*time.Second {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if len(cfg.Push.Schedules) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(cfg.Push.Schedules))
	}
	sc := cfg.Push.Schedules[0]
	if sc.Name != "morning" || sc.Spec != "0 9 * * 1-5" || sc.Title != "Bom dia" || sc.URL != "/aulas" {
		t.Fatalf("unexpected schedule: %+v", sc)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	pushOff(t)
	t.Setenv("RATE_MAX", "3")
	path := writeFile(t, "rate:\n  max: 10\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rate.Max != 3 {
		t.Fatalf("expected env to win, got %d", cfg.Rate.Max)
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	pushOff(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			ListenAddr: ":8080",
			Rate:       RateConfig{Enabled: true, Max: 10, Window: time.Minute},
			DB:         DBConfig{Driver: "sqlite", DSN: ":memory:"},
			Log:        LogConfig{Level: "info", Format: "console"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "rate max", mutate: func(c *Config) { c.Rate.Max = 0 }, want: "RATE_MAX"},
		{name: "rate window", mutate: func(c *Config) { c.Rate.Window = 0 }, want: "RATE_WINDOW"},
		{name: "disabled rate ignores max", mutate: func(c *Config) { c.Rate.Enabled = false; c.Rate.Max = 0 }},
		{name: "stats without redis", mutate: func(c *Config) { c.Rate.Stats.Enabled = true }, want: "RATE_STATS_REDIS_ADDR"},
		{name: "concurrency", mutate: func(c *Config) { c.Concurrency.Max = -1 }, want: "CONCURRENCY_MAX"},
		{name: "dsn", mutate: func(c *Config) { c.DB.DSN = "" }, want: "DB_DSN"},
		{name: "driver", mutate: func(c *Config) { c.DB.Driver = "mysql" }, want: "DB_DRIVER"},
		{name: "push without vapid", mutate: func(c *Config) { c.Push.Enabled = true }, want: "VAPID_PUBLIC_KEY"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, want: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestLoader_ReloadOnWrite(t *testing.T) {
	pushOff(t)
	path := writeFile(t, "log:\n  level: info\n")

	l := NewLoader(path)
	if _, err := l.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	var got Config
	var gotErr error
	calls := 0
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, func(c Config, err error) {
		calls++
		got, gotErr = c, err
	})
	if calls != 1 || gotErr != nil {
		t.Fatalf("expected one successful reload, got calls=%d err=%v", calls, gotErr)
	}
	if got.Log.Level != "debug" {
		t.Fatalf("expected reloaded level debug, got %q", got.Log.Level)
	}

	// chmod não dispara reload
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Chmod}, func(Config, error) { calls++ })
	if calls != 1 {
		t.Fatalf("expected chmod to be ignored")
	}

	if err := os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	l.reload(fsnotify.Event{Name: path, Op: fsnotify.Write}, func(_ Config, err error) { gotErr = err })
	if gotErr == nil {
		t.Fatalf("expected invalid reload to report an error")
	}
}
