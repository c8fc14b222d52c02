package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/use-agent/shotlist/config"
)

func main() {
	a := &app{
		fs:        afero.NewOsFs(),
		stdout:    os.Stdout,
		newEngine: newScraperEngine,
	}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// stdout carries only the progress report.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	format := cfg.Format
	if format == "auto" || format == "" {
		format = "json"
		if fd := os.Stderr.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			format = "text"
		}
	}

	var handler slog.Handler
	if format == "text" {
		handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           charmlog.Level(level),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	slog.SetDefault(slog.New(handler))
}
