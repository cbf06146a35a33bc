package providers

import (
	"context"
	"log/slog"

	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
)

// logFetch emits a fetch-scoped entry tagged with the provider and resource key.
// The context logger wins over the fallback; nothing is logged when both are nil.
func logFetch(ctx context.Context, fallback *slog.Logger, level slog.Level, provider string, req Request, msg string, args ...any) {
	logger := logging.FromContext(ctx, fallback)
	if logger == nil || !logger.Enabled(ctx, level) {
		return
	}
	args = append(args,
		slog.String(logging.FieldProvider, provider),
		slog.String(logging.FieldKey, req.Key),
	)
	logger.Log(ctx, level, msg, args...)
}
