package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/preston-bernstein/epl-fixtures-service/internal/config"
	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/server"
)

const appVersion = "dev"

func main() {
	if os.Getenv("SKIP_SERVER_RUN") == "1" {
		return
	}

	cfg := config.Load()
	logger := newLogger(cfg, os.Stdout)
	logConfig(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger)
	srv.Run(ctx, stop)
}

func newLogger(cfg config.Config, out io.Writer) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.Metrics.ServiceName,
		Version: appVersion,
		Output:  out,
	})
}

// logConfig reports the effective configuration without secrets.
func logConfig(logger *slog.Logger, cfg config.Config) {
	logger.Info("config loaded",
		slog.String(logging.FieldProvider, cfg.Provider),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.String("timezone", cfg.Display.Timezone),
		slog.Bool("admin_token_set", cfg.AdminToken != ""),
	)
}
