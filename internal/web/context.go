package web

import (
	"context"

	"github.com/duskveil/game-api/internal/user/entity"
)

type contextKey int

const (
	userKey contextKey = iota
	requestIDKey
)

// WithUser stashes the authenticated player on the request context.
func WithUser(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// CurrentUser returns the authenticated player, or nil outside the auth
// middleware.
func CurrentUser(ctx context.Context) *entity.User {
	u, _ := ctx.Value(userKey).(*entity.User)
	return u
}

// WithRequestID stashes the per-request ID on the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the per-request ID, or "" when unset.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
