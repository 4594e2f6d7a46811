package actorctx_test

import (
	"context"
	"testing"

	"github.com/tingyu91/snsjf/internal/actorctx"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := actorctx.UserIDFrom(context.Background()); ok {
		t.Fatalf("expected no actor on a bare context")
	}

	ctx := actorctx.WithUserID(context.Background(), "u1")
	id, ok := actorctx.UserIDFrom(ctx)
	if !ok || id != "u1" {
		t.Fatalf("expected u1, got %q %v", id, ok)
	}

	if _, ok := actorctx.UserIDFrom(actorctx.WithUserID(context.Background(), "")); ok {
		t.Fatalf("empty id must not count as an actor")
	}
}
