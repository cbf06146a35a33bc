package testutil

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
)

// NewBufferLogger returns a debug-level text logger backed by a buffer, and the buffer for assertions.
func NewBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, &buf
}

// NewRecorderWithShutdown returns an in-process recorder and a no-op shutdown.
func NewRecorderWithShutdown() (*metrics.Recorder, func(context.Context) error) {
	return metrics.NewRecorder(), func(context.Context) error { return nil }
}
