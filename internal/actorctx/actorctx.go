// Package actorctx carries the signed-in user id on a request context so
// code below the HTTP layer can attribute its logs.
package actorctx

import (
	"context"
)

type key struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, key{}, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(key{}).(string)

	return v, ok && v != ""
}
