package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry releases buffered telemetry at the end of a drain. Metrics
// are pull-based and need no push on exit; buffered log entries are the only
// telemetry that can be lost, so this amounts to a logger sync. Run it after
// in-flight weather requests have drained, since those log on completion.
func FlushTelemetry(ctx context.Context, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if logger == nil {
		return nil
	}
	if err := logger.Sync(); err != nil {
		return fmt.Errorf("flush logs: %w", err)
	}
	return nil
}
