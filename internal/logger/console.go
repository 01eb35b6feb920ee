package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/scribefs/scribefs/pkg/bufpool"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// consoleHandler renders records as single human-readable lines:
//
//	2026-01-02 15:04:05.000 INFO  lock acquired filename=doc.txt sentence_index=3
//
// Attrs from WithAttrs are pre-rendered once; groups become dotted key
// prefixes.
type consoleHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	color bool

	bound  string // pre-rendered WithAttrs fields
	prefix string // dotted group path, "" or "grp."
}

func newConsoleHandler(w io.Writer, level slog.Leveler, color bool) *consoleHandler {
	return &consoleHandler{
		w:     w,
		mu:    new(sync.Mutex),
		level: level,
		color: color,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	if !r.Time.IsZero() {
		buf.WriteString(r.Time.Format("2006-01-02 15:04:05.000"))
		buf.WriteByte(' ')
	}
	h.writeLevel(buf.WriteString, r.Level)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	buf.WriteString(h.bound)

	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(buf.WriteString, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) writeLevel(write func(string) (int, error), level slog.Level) {
	var name, color string
	switch {
	case level < slog.LevelInfo:
		name, color = "DEBUG", ansiGray
	case level < slog.LevelWarn:
		name, color = "INFO ", ansiGreen
	case level < slog.LevelError:
		name, color = "WARN ", ansiYellow
	default:
		name, color = "ERROR", ansiRed
	}
	if h.color {
		write(color)
		write(name)
		write(ansiReset)
		return
	}
	write(name)
}

func (h *consoleHandler) writeAttr(write func(string) (int, error), a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			ga.Key = a.Key + "." + ga.Key
			h.writeAttr(write, ga)
		}
		return
	}

	write(" ")
	if h.color {
		write(ansiCyan)
	}
	write(h.prefix)
	write(a.Key)
	if h.color {
		write(ansiReset)
	}
	write("=")
	write(renderValue(a.Value))
}

// renderValue formats a value, quoting strings that would break the
// key=value grammar.
func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format("2006-01-02T15:04:05Z07:00")
	default:
		s = v.String()
	}
	if needsQuoting(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c <= ' ', c == '=', c == '"':
			return true
		}
	}
	return false
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	buf := bufpool.Get()
	defer bufpool.Put(buf)
	buf.WriteString(h.bound)
	for _, a := range attrs {
		h.writeAttr(buf.WriteString, a)
	}
	clone.bound = buf.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
