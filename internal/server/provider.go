package server

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/preston-bernstein/epl-fixtures-service/internal/config"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/bundled"
	"github.com/preston-bernstein/epl-fixtures-service/internal/providers/fpl"
)

const (
	providerFPL     = "fpl"
	providerBundled = "bundled"
)

func selectSource(cfg config.Config, logger *slog.Logger) providers.Source {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case providerFPL, "":
		return fpl.NewClient(fpl.Config{
			BaseURL:   cfg.FPL.BaseURL,
			UserAgent: cfg.FPL.UserAgent,
		})
	case providerBundled:
		return bundled.New()
	default:
		if logger != nil {
			logger.Warn("unknown provider, falling back to bundled data", slog.String("provider", cfg.Provider))
		}
		return bundled.New()
	}
}

// normalizeProviderName lower-cases the configured name, falling back to the source type.
func normalizeProviderName(raw string, source providers.Source) string {
	if raw = strings.TrimSpace(raw); raw != "" {
		return strings.ToLower(raw)
	}
	if source == nil {
		return "provider"
	}
	return strings.ToLower(fmt.Sprintf("%T", source))
}
