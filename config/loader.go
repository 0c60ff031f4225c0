package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Loader mantém o viper vivo para permitir recarregar o arquivo.
type Loader struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string
}

// NewLoader prepara a leitura. path vazio significa só padrões + ambiente.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path = strings.TrimSpace(path)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}
	return &Loader{v: v, path: path}
}

// Load lê padrões, arquivo e ambiente.
func Load(path string) (Config, error) {
	return NewLoader(path).Load()
}

func (l *Loader) Load() (Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", l.path, err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Path devolve o arquivo em uso ("" quando não há).
func (l *Loader) Path() string { return l.path }

// Watch chama fn a cada escrita no arquivo de configuração.
// Uma configuração inválida chega como erro e a anterior continua valendo.
func (l *Loader) Watch(fn func(Config, error)) {
	if l.path == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) { l.reload(e, fn) })
	l.v.WatchConfig()
}

func (l *Loader) reload(e fsnotify.Event, fn func(Config, error)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.v.ReadInConfig(); err != nil {
		fn(Config{}, fmt.Errorf("reading config %s: %w", l.path, err))
		return
	}
	fn(l.decode())
}
