package middleware

import "context"

type ctxKey int

const (
	actorIDKey ctxKey = iota
	actorRoleKey
	cartSessionKey
)

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ActorIDFromContext returns the authenticated operator subject.
func ActorIDFromContext(ctx context.Context) string { return stringValue(ctx, actorIDKey) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, actorRoleKey) }

// CartSessionFromContext returns the buyer's cart session identifier.
func CartSessionFromContext(ctx context.Context) string { return stringValue(ctx, cartSessionKey) }

// WithActor injects an operator identity, e.g. for handler tests.
func WithActor(ctx context.Context, actorID, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(context.WithValue(ctx, actorIDKey, actorID), actorRoleKey, role)
}

func WithCartSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cartSessionKey, sessionID)
}
