// Package userctx stores the authenticated user id in a context.Context. The
// authentication middleware injects it and handlers read it back.
package userctx

import (
	"context"
	"fmt"
)

type userKey struct{}

// WithUserID adds the authenticated user id to ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserIDFromContext extracts the authenticated user id from ctx.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userKey{}).(int64)
	return id, ok
}

// MustUserIDFromContext returns an error when no user is present.
func MustUserIDFromContext(ctx context.Context) (int64, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return 0, fmt.Errorf("user not found in context")
	}
	return id, nil
}
