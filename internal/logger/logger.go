package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/comitanigiacomo/ferienplan-sync/internal/config"
)

// New builds the process logger: human readable text for local runs, JSON
// elsewhere. level overrides the environment's default when set. With file
// set, output is also written to a rotated log file.
func New(env, level, file string) *slog.Logger {
	var out io.Writer = os.Stdout
	if file != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}
	return newLogger(out, env, level)
}

func newLogger(out io.Writer, env, level string) *slog.Logger {
	lvl := defaultLevel(env)
	if level != "" {
		lvl = parseLevel(level, lvl)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if env == config.EnvLocal || env == "" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

func defaultLevel(env string) slog.Level {
	if env == config.EnvProd {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return fallback
	}
	return lvl
}
