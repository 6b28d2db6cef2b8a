package logging

import (
	"context"
	"io"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiReset     = "\033[0m"
	ansiRed       = "\033[31m"
	ansiGreen     = "\033[32m"
	ansiYellow    = "\033[33m"
	ansiCyan      = "\033[36m"
	ansiGray      = "\033[90m"
	ansiUnderline = "\033[4m"

	consoleTimeLayout = "15:04:05.000000"
)

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiGreen
	default:
		return ansiCyan
	}
}

// ConsoleHandler is a slog.Handler writing colored single-line records
// followed by the calling function, for reading in a terminal.
//
// PkgLevels sets the minimum level per logger name. A key applies to the
// logger with that name and to every logger below it ("svc" covers
// "svc.accountsvc.http_transport"); the empty key applies to all loggers.
type ConsoleHandler struct {
	Output    io.Writer
	Level     slog.Leveler
	PkgLevels map[string]slog.Level

	// name is the value of the loggerNameKey attribute, if one was added
	name   string
	prefix string
	attrs  []slog.Attr
	mu     *sync.Mutex
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// Enabled implements slog.Handler.Enabled. Without a logger name any
// override could still apply, so the lowest configured level decides.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.name != "" {
		return level >= h.minLevel(h.name)
	}

	floor := h.Level.Level()
	for _, pkgLevel := range h.PkgLevels {
		floor = min(floor, pkgLevel)
	}

	return level >= floor
}

// Handle implements slog.Handler.Handle.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	name := h.name

	attrs := slices.Clone(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == loggerNameKey && name == "" {
			name = a.Value.String()
		}

		attrs = flatten(attrs, h.prefix, a)

		return true
	})

	if r.Level < h.minLevel(name) {
		return nil
	}

	var b strings.Builder

	b.WriteString(ansiGray + r.Time.Format(consoleTimeLayout) + ansiReset)
	b.WriteString(" " + levelColor(r.Level) + "[" + r.Level.String() + "]" + ansiReset)
	b.WriteString(" " + r.Message)

	if len(attrs) > 0 {
		b.WriteString(" " + ansiGray + "|" + ansiReset)

		for _, a := range attrs {
			b.WriteString(" " + a.Key + "=" + ansiGray + a.Value.String() + ansiReset)
		}
	}

	if r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()

		b.WriteString("\n-> " + ansiGray + path.Base(frame.Function) + "()")
		b.WriteString(" in " + ansiUnderline + frame.File + ":" + strconv.Itoa(frame.Line) + ansiReset)
	}

	b.WriteByte('\n')

	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}

	_, err := io.WriteString(h.Output, b.String())

	//nolint:wrapcheck
	return err
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	next := h.clone()

	for _, a := range attrs {
		if a.Key == loggerNameKey && h.prefix == "" {
			next.name = a.Value.String()
		}

		next.attrs = flatten(next.attrs, h.prefix, a)
	}

	return next
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	if name == "" {
		return h
	}

	next := h.clone()
	next.prefix = h.prefix + name + "."

	return next
}

func (h *ConsoleHandler) clone() *ConsoleHandler {
	mu := h.mu
	if mu == nil {
		mu = new(sync.Mutex)
	}

	return &ConsoleHandler{
		Output:    h.Output,
		Level:     h.Level,
		PkgLevels: h.PkgLevels,
		name:      h.name,
		prefix:    h.prefix,
		attrs:     slices.Clip(h.attrs),
		mu:        mu,
	}
}

func (h *ConsoleHandler) minLevel(name string) slog.Level {
	if level, ok := h.pkgLevel(name); ok {
		return level
	}

	return h.Level.Level()
}

// pkgLevel returns the level configured for name or its closest parent.
func (h *ConsoleHandler) pkgLevel(name string) (slog.Level, bool) {
	for key := name; ; {
		if level, ok := h.PkgLevels[key]; ok {
			return level, true
		}

		if key == "" {
			return 0, false
		}

		if i := strings.LastIndexByte(key, '.'); i >= 0 {
			key = key[:i]
		} else {
			key = ""
		}
	}
}

// flatten appends a to dst, expanding groups into dotted keys.
func flatten(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() != slog.KindGroup {
		if a.Equal(slog.Attr{}) {
			return dst
		}

		return append(dst, slog.Attr{Key: prefix + a.Key, Value: a.Value})
	}

	groupPrefix := prefix
	if a.Key != "" {
		groupPrefix += a.Key + "."
	}

	for _, member := range a.Value.Group() {
		dst = flatten(dst, groupPrefix, member)
	}

	return dst
}
