package logger

import (
	"io"
	"log/slog"
)

// NewTestLogger returns a Logger writing text records at or above level to w.
func NewTestLogger(w io.Writer, level LogLevel) Logger {
	lvl := parseSlogLevel(level)
	return &moduleLogger{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})),
		level:  lvl,
	}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() Logger {
	return &moduleLogger{
		logger: slog.New(slog.DiscardHandler),
		level:  slog.LevelError + 1,
	}
}
