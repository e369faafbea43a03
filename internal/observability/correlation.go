package observability

import "context"

// Correlation IDs tie an inbound request to its outbound geocode and forecast
// calls. The middleware stores the ID, the upstream clients read it back and
// forward it as X-Correlation-ID.

const correlationIDKey = "correlation_id"

// WithCorrelationID returns a context carrying the correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation ID, or "" if none is set.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
