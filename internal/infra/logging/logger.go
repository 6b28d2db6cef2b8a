// Package logging builds the named slog loggers used across the service.
// Loggers are created after Configure and pick the console or JSON format,
// the global level and per-logger level overrides from LoggerConfig.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// loggerNameKey carries the name passed to GetLogger. LOG_FILTER matches on it.
const loggerNameKey = "logger"

type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// AppName is added to every record when set
	AppName string

	// Output is "stdout", "stderr", "discard" or a file path to append to
	Output string `env:"OUTPUT" default:"stderr"`

	// Level is the minimum level: "debug", "info", "warn" or "error"
	Level string `env:"LEVEL" default:"info"`

	// Filter overrides the level per logger in console format, e.g. "svc.accountsvc:debug,repo:warn"
	Filter string `env:"FILTER" default:""`

	// JSON switches from the colored console format to JSON lines
	JSON bool `env:"JSON" default:"false"`

	// OutputHandle takes precedence over Output when set
	OutputHandle io.Writer
}

//nolint:gochecknoglobals
var Group = slog.Group

type settings struct {
	appName   string
	out       io.Writer
	level     slog.Level
	pkgLevels map[string]slog.Level
	json      bool
}

//nolint:gochecknoglobals
var (
	current   = settings{out: io.Discard, level: LevelInfo}
	currentMu sync.RWMutex
)

// Configure sets the process-wide logging settings. Loggers obtained before
// the call keep their old settings.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) error {
	out, err := openOutput(cfg)
	if err != nil {
		return err
	}

	currentMu.Lock()
	current = settings{
		appName:   appName,
		out:       out,
		level:     parseLevel(cfg.Level, LevelInfo),
		pkgLevels: parseFilter(cfg.Filter),
		json:      cfg.JSON,
	}
	currentMu.Unlock()

	slog.SetLogLoggerLevel(parseLevel(cfg.Level, LevelInfo))

	GetLogger("infra.logging").DebugContext(ctx, "logging configured", Group("config",
		"appName", appName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"json", cfg.JSON,
	))

	return nil
}

func openOutput(cfg LoggerConfig) (io.Writer, error) {
	if cfg.OutputHandle != nil {
		return cfg.OutputHandle, nil
	}

	switch cfg.Output {
	case "", "discard":
		return io.Discard, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// GetLogger returns a logger named name, e.g. "svc.accountsvc.http_transport".
// Before Configure is called, and with Output "discard", records are dropped.
func GetLogger(name string) Logger {
	currentMu.RLock()
	s := current
	currentMu.RUnlock()

	if s.out == io.Discard {
		return NewNopLogger()
	}

	var handler slog.Handler

	if s.json {
		//nolint:exhaustruct
		handler = slog.NewJSONHandler(s.out, &slog.HandlerOptions{AddSource: true, Level: s.level})
	} else {
		//nolint:exhaustruct
		handler = &ConsoleHandler{Output: s.out, Level: s.level, PkgLevels: s.pkgLevels}
	}

	logger := slog.New(NewTracingHandler(handler))

	if s.appName != "" {
		logger = logger.With("app", s.appName)
	}

	return logger.With(loggerNameKey, name)
}

// GetLogLogger adapts logger for APIs that want a *log.Logger, such as http.Server.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.With("stdlog", true).Handler(), level)
}

func parseLevel(s string, fallback Level) Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fallback
	}

	return level
}

// parseFilter reads "name:level" pairs separated by commas. Malformed pairs are ignored.
func parseFilter(filter string) map[string]slog.Level {
	levels := make(map[string]slog.Level)

	for _, pair := range strings.Split(filter, ",") {
		name, level, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}

		levels[strings.TrimSpace(name)] = parseLevel(level, LevelDebug)
	}

	return levels
}
