package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures the global slog default logger from the logging
// section of the application configuration.
//
// format: "json" selects the JSON handler (production); anything else selects
// the text handler (local development).
//
// level: "debug", "info", "warn", "error" (case-insensitive); defaults to
// "info". Debug level also enables source locations on every record.
//
// The logger is installed as the process default so slog.Info/Warn/Error
// calls anywhere in the application use it without carrying a *slog.Logger
// around. The audit recorder in particular relies on this: swallowed audit
// failures surface only through these log records and the failure counter.
func SetupLogger(format, level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
