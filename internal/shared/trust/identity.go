package trust

import "context"

// Caller is the identity the edge asserted when it signed the request.
type Caller struct {
	ID    string
	Email string
}

type contextKey int

const (
	callerKey contextKey = iota
	correlationKey
)

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the verified caller identity, if any. System
// calls carry no caller and ok is false.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok
}

func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationKey, correlationID)
}

func CorrelationIDFromContext(ctx context.Context) string {
	correlationID, _ := ctx.Value(correlationKey).(string)
	return correlationID
}
