// Package config carrega a configuração do gateway: padrões, arquivo YAML
// opcional e variáveis de ambiente, nessa ordem de precedência crescente.
//
// As variáveis de ambiente seguem as chaves em maiúsculas com "." trocado por
// "_": rate.stats.redis_addr vira RATE_STATS_REDIS_ADDR.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Rate        RateConfig        `mapstructure:"rate"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	DB          DBConfig          `mapstructure:"db"`
	VAPID       VAPIDConfig       `mapstructure:"vapid"`
	Push        PushConfig        `mapstructure:"push"`
	Log         LogConfig         `mapstructure:"log"`
}

type RateConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Max        int           `mapstructure:"max"`
	Window     time.Duration `mapstructure:"window"`
	SweepEvery time.Duration `mapstructure:"sweep_every"`
	Scope      string        `mapstructure:"scope"`
	Stats      StatsConfig   `mapstructure:"stats"`
}

type StatsConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
	Bucket        string        `mapstructure:"bucket"`
	TrackKeys     bool          `mapstructure:"track_keys"`
}

type ConcurrencyConfig struct {
	Max     int           `mapstructure:"max"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DBConfig struct {
	Driver      string        `mapstructure:"driver"`
	DSN         string        `mapstructure:"dsn"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

type VAPIDConfig struct {
	PublicKey  string `mapstructure:"public_key"`
	PrivateKey string `mapstructure:"private_key"`
	Subject    string `mapstructure:"subject"`
}

type PushConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	Workers         int              `mapstructure:"workers"`
	RatePerSec      int              `mapstructure:"rate_per_sec"`
	Timeout         time.Duration    `mapstructure:"timeout"`
	TTL             int              `mapstructure:"ttl"`
	Urgency         string           `mapstructure:"urgency"`
	Timezone        string           `mapstructure:"timezone"`
	ScheduleTimeout time.Duration    `mapstructure:"schedule_timeout"`
	Schedules       []ScheduleConfig `mapstructure:"schedules"`
}

// ScheduleConfig é um disparo recorrente. Só pode vir do arquivo.
type ScheduleConfig struct {
	Name  string `mapstructure:"name"`
	Spec  string `mapstructure:"spec"`
	Title string `mapstructure:"title"`
	Body  string `mapstructure:"body"`
	URL   string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("shutdown_timeout", 10*time.Second)

	v.SetDefault("rate.enabled", true)
	v.SetDefault("rate.max", 60)
	v.SetDefault("rate.window", time.Minute)
	v.SetDefault("rate.sweep_every", 5*time.Minute)
	v.SetDefault("rate.scope", "api")

	v.SetDefault("rate.stats.enabled", false)
	v.SetDefault("rate.stats.redis_addr", "")
	v.SetDefault("rate.stats.redis_password", "")
	v.SetDefault("rate.stats.redis_db", 0)
	v.SetDefault("rate.stats.prefix", "ratelimit:stats")
	v.SetDefault("rate.stats.ttl", 24*time.Hour)
	v.SetDefault("rate.stats.bucket", "minute")
	v.SetDefault("rate.stats.track_keys", false)

	v.SetDefault("concurrency.max", 100)
	v.SetDefault("concurrency.timeout", time.Duration(0))

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "delivery.db")
	v.SetDefault("db.busy_timeout", 5*time.Second)

	v.SetDefault("vapid.public_key", "")
	v.SetDefault("vapid.private_key", "")
	v.SetDefault("vapid.subject", "")

	v.SetDefault("push.enabled", true)
	v.SetDefault("push.workers", 16)
	v.SetDefault("push.rate_per_sec", 0)
	v.SetDefault("push.timeout", 10*time.Second)
	v.SetDefault("push.ttl", 60)
	v.SetDefault("push.urgency", "normal")
	v.SetDefault("push.timezone", "")
	v.SetDefault("push.schedule_timeout", 2*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate rejeita combinações que não fazem sentido para subir o serviço.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("LISTEN_ADDR is required"))
	}
	if c.Rate.Enabled {
		if c.Rate.Max <= 0 {
			errs = append(errs, errors.New("RATE_MAX must be > 0"))
		}
		if c.Rate.Window <= 0 {
			errs = append(errs, errors.New("RATE_WINDOW must be > 0"))
		}
	}
	if c.Rate.SweepEvery < 0 {
		errs = append(errs, errors.New("RATE_SWEEP_EVERY must be >= 0"))
	}
	if c.Rate.Stats.Enabled && strings.TrimSpace(c.Rate.Stats.RedisAddr) == "" {
		errs = append(errs, errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true"))
	}
	if c.Concurrency.Max < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	switch strings.ToLower(c.DB.Driver) {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not supported", c.DB.Driver))
	}
	if c.Push.Enabled {
		if c.VAPID.PublicKey == "" || c.VAPID.PrivateKey == "" {
			errs = append(errs, errors.New("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY are required when PUSH_ENABLED=true"))
		}
		if c.Push.Workers < 0 || c.Push.RatePerSec < 0 {
			errs = append(errs, errors.New("PUSH_WORKERS and PUSH_RATE_PER_SEC must be >= 0"))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be console or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
