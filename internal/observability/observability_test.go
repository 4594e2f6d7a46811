package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingyu91/snsjf/internal/actorctx"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{name: "fk", err: &pgconn.PgError{Code: "23503"}, want: "foreign_key_violation"},
		{name: "other pg", err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		{name: "deadline", err: context.DeadlineExceeded, want: "timeout"},
		{name: "conn", err: errors.New("connection refused"), want: "connection"},
		{name: "unknown", err: errors.New("boom"), want: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDBErr(tt.err))
		})
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users.create", func() error {
		return &pgconn.PgError{Code: "23505"}
	})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation")))
}

func TestNilPromIsSafe(t *testing.T) {
	var p *Prom

	called := false
	require.NoError(t, p.ObserveDB("x", func() error { called = true; return nil }))
	assert.True(t, called)

	p.ObserveAuth("signin", "ok")
	p.ObserveSession("create", nil)
	p.ObserveNotify("password_reset", "sent")
}

func TestObserveAuth(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	p.ObserveAuth("signin", "invalid_secret")
	p.ObserveAuth("signin", "invalid_secret")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.AuthOutcomes.WithLabelValues("signin", "invalid_secret")))
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "dev")

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "hello")
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, "dev", rec["env"])
}

func TestLogger_AddsActor(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "dev")

	logger.InfoContext(actorctx.WithUserID(context.Background(), "u1"), "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "u1", rec["actor_id"])
}
