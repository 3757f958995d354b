package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() { SetOutput(os.Stdout, slog.LevelInfo) }

// SetOutput replaces the destination and minimum level of the process logger.
func SetOutput(w io.Writer, level slog.Level) {
	l := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	logger.Store(l)
}

// Logger exposes the underlying slog logger for libraries that want one.
func Logger() *slog.Logger { return logger.Load() }

func Log(level slog.Level, msg string, fields map[string]any) {
	attrs := make([]any, 0, 2*len(fields))
	for k, v := range fields {
		if err, ok := v.(error); ok && err != nil {
			v = err.Error()
		}
		attrs = append(attrs, k, v)
	}
	logger.Load().Log(context.Background(), level, msg, attrs...)
}

func Debug(msg string, fields map[string]any) { Log(slog.LevelDebug, msg, fields) }
func Info(msg string, fields map[string]any)  { Log(slog.LevelInfo, msg, fields) }
func Warn(msg string, fields map[string]any)  { Log(slog.LevelWarn, msg, fields) }
func Error(msg string, fields map[string]any) { Log(slog.LevelError, msg, fields) }
