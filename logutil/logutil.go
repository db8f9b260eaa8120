// logutil.go - slog Logger mit Trace-Level und kurzen Quellangaben
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
)

// LevelTrace liegt unter Debug und wird mit TFLM_DEBUG=2 aktiviert
const LevelTrace slog.Level = -8

// NewLogger erzeugt einen Text-Logger mit Quellangabe (Dateiname ohne Pfad)
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if attr.Value.Any().(slog.Level) == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	}))
}

// Trace loggt auf LevelTrace mit dem Default-Logger
func Trace(msg string, args ...any) {
	trace(context.TODO(), msg, args...)
}

// TraceContext loggt auf LevelTrace mit Context
func TraceContext(ctx context.Context, msg string, args ...any) {
	trace(ctx, msg, args...)
}

// trace haelt die Quellangabe beim Aufrufer von Trace/TraceContext
func trace(ctx context.Context, msg string, args ...any) {
	logger := slog.Default()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // Callers, trace, Trace
	r := slog.NewRecord(time.Now(), LevelTrace, msg, pcs[0])
	r.Add(args...)
	_ = logger.Handler().Handle(ctx, r)
}
