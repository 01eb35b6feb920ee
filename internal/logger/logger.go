// Package logger is the process-wide structured logger. It wraps
// log/slog with a colored console handler for interactive use and a
// JSON handler for collection, selected by configuration.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects the logger's level, format and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

type state struct {
	mu    sync.RWMutex
	log   *slog.Logger
	level *slog.LevelVar
}

var global = func() *state {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	return &state{
		log:   slog.New(newConsoleHandler(os.Stdout, lv, isTerminal(os.Stdout))),
		level: lv,
	}
}()

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Init reconfigures the global logger. Output may be "stdout",
// "stderr", or a file path opened in append mode. Files never get
// color.
func Init(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var w io.Writer
	var color bool
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		w, color = os.Stdout, isTerminal(os.Stdout)
	case "stderr":
		w, color = os.Stderr, isTerminal(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.Output, err)
		}
		w = f
	}

	format := strings.ToLower(cfg.Format)
	if format != "" && format != "text" && format != "json" {
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	global.level.Set(level)
	if format == "json" {
		global.log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: global.level}))
	} else {
		global.log = slog.New(newConsoleHandler(w, global.level, color))
	}
	return nil
}

// InitWithWriter points the logger at an arbitrary writer. Tests use
// this to capture output.
func InitWithWriter(w io.Writer, level, format string, color bool) {
	lv, err := parseLevel(level)
	if err != nil {
		lv = slog.LevelInfo
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	global.level.Set(lv)
	if strings.ToLower(format) == "json" {
		global.log = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: global.level}))
	} else {
		global.log = slog.New(newConsoleHandler(w, global.level, color))
	}
}

// SetLevel changes the minimum level without rebuilding the handler.
// Unknown levels are ignored.
func SetLevel(level string) {
	if lv, err := parseLevel(level); err == nil {
		global.level.Set(lv)
	}
}

func current() *slog.Logger {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.log
}

// Debug logs at debug level. args alternate keys and values, or are
// slog.Attr values from this package's field constructors.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// DebugCtx logs at debug level, prefixing the request fields carried
// by ctx (see LogContext).
func DebugCtx(ctx context.Context, msg string, args ...any) {
	current().Debug(msg, withRequestFields(ctx, args)...)
}

// InfoCtx logs at info level with the request fields carried by ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	current().Info(msg, withRequestFields(ctx, args)...)
}

// WarnCtx logs at warn level with the request fields carried by ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	current().Warn(msg, withRequestFields(ctx, args)...)
}

// ErrorCtx logs at error level with the request fields carried by ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	current().Error(msg, withRequestFields(ctx, args)...)
}

// withRequestFields prepends the LogContext fields so they lead every
// line for the request.
func withRequestFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, len(args)+8)
	if lc.Command != "" {
		out = append(out, KeyCommand, lc.Command)
	}
	if lc.Identity != "" {
		out = append(out, KeyIdentity, lc.Identity)
	}
	if lc.Filename != "" {
		out = append(out, KeyFilename, lc.Filename)
	}
	if lc.ClientIP != "" {
		out = append(out, KeyClientIP, lc.ClientIP)
	}
	return append(out, args...)
}
