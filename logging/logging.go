// Package logging monta o zerolog.Logger do processo.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type Config struct {
	Level string
	// Format é "console" (legível) ou "json".
	Format string
}

// New cria o logger raiz. O nível efetivo é global (SetLevel), então todos os
// loggers derivados acompanham uma troca em tempo de execução.
func New(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	zerolog.ErrorFieldName = "err"

	w := out
	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		zerolog.TimeFieldFormat = consoleTimeFormat
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}

	SetLevel(cfg.Level)
	return zerolog.New(w).Level(zerolog.TraceLevel).With().Timestamp().Logger()
}

// SetLevel troca o nível global. Valor inválido cai em info.
func SetLevel(level string) zerolog.Level {
	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	return lvl
}

func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
