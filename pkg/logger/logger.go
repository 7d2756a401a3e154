package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New — логгер по умолчанию, до чтения конфига. Всегда консольный вывод
// уровня info, чтобы ошибки старта было видно сразу.
func New() zerolog.Logger {
	return zerolog.New(console(false)).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(zerolog.InfoLevel)
}

// NewWithConfig собирает логгер по настройкам: pretty — консольный вывод для
// локальной работы, иначе голый JSON для сборщика логов.
func NewWithConfig(level string, pretty, noColor bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = console(noColor)
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger().
		Level(parsed)
}

func console(noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}
}
