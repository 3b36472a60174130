package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"fleet-tracker/internal/common/contextx"
)

// Logger writes single-line JSON entries tagged with service and hostname.
type Logger struct {
	base     *slog.Logger
	hostname string
}

// New creates a DEBUG-level JSON logger on stdout for the given service.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout, slog.LevelDebug)
}

// NewWithWriter is New with an explicit sink and minimum level.
func NewWithWriter(service string, w io.Writer, level slog.Level) *Logger {
	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "timestamp"
			}
			return a
		},
	}).WithAttrs([]slog.Attr{
		slog.String("service", service),
	})

	return &Logger{base: slog.New(handler), hostname: hostname()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWithWriter("nop", io.Discard, slog.LevelError+1)
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, message string, details any) {
	l.emit(ctx, slog.LevelDebug, action, message, nil, details)
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, message string, details any) {
	l.emit(ctx, slog.LevelInfo, action, message, nil, details)
}

// Warn writes a WARN line with optional details.
func (l *Logger) Warn(ctx context.Context, action, message string, details any) {
	l.emit(ctx, slog.LevelWarn, action, message, nil, details)
}

// Error writes an ERROR line and attaches a short stack trace.
func (l *Logger) Error(ctx context.Context, action, message string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	l.emit(ctx, slog.LevelError, action, message, err, details)
}

func (l *Logger) emit(ctx context.Context, level slog.Level, action, message string, err error, details any) {
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.base.Enabled(ctx, level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("action", safeAction(action)),
		slog.String("hostname", l.hostname),
	}
	if v := contextx.GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String("request_id", v))
	}
	if v := contextx.GetSessionID(ctx); v != "" {
		attrs = append(attrs, slog.String("session_id", v))
	}
	if v := contextx.GetUnitID(ctx); v != "" {
		attrs = append(attrs, slog.String("unit_id", v))
	}
	if details != nil {
		attrs = append(attrs, slog.Any("details", details))
	}
	if err != nil {
		attrs = append(attrs, slog.Group("error",
			slog.String("msg", strings.TrimSpace(err.Error())),
			slog.String("stack", shortStack(4, 8)),
		))
	}

	l.base.LogAttrs(ctx, level, strings.TrimSpace(message), attrs...)
}

func shortStack(skip, max int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	count := 0
	for {
		f, more := frames.Next()
		fn := f.Function
		if strings.HasPrefix(fn, "runtime.") || strings.Contains(fn, "/log.") {
			if !more {
				break
			}
			continue
		}
		file := filepath.Base(f.File)
		if i := strings.LastIndex(fn, "."); i >= 0 && i+1 < len(fn) {
			fn = fn[i+1:]
		}
		fmt.Fprintf(&b, "%s %s:%d\n", fn, file, f.Line)
		count++
		if count >= max || !more {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || strings.TrimSpace(name) == "" {
		return "unknown-hostname"
	}
	return name
}
