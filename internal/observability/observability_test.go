package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{name: "wrapped_unique", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: "unique_violation"},
		{name: "other_pg", err: &pgconn.PgError{Code: "42P01"}, want: "pg_42P01"},
		{name: "timeout", err: context.DeadlineExceeded, want: "timeout"},
		{name: "connection", err: errors.New("connection refused"), want: "connection"},
		{name: "unknown", err: errors.New("boom"), want: "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB_NilPromRunsFn(t *testing.T) {
	var p *Prom
	called := false

	err := p.ObserveDB("users.get", func() error {
		called = true
		return nil
	})

	if err != nil || !called {
		t.Fatalf("expected fn to run without error, called=%v err=%v", called, err)
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())
	want := errors.New("boom")

	err := p.ObserveDB("graph.create_person", func() error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected fn error to be returned, got %v", err)
	}

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("graph.create_person", "unknown"))
	if got != 1 {
		t.Fatalf("expected one error counted, got %v", got)
	}
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	log.InfoContext(ctx, "hello")
	span.End()

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v body=%s", err, buf.String())
	}

	if rec["trace_id"] != span.SpanContext().TraceID().String() {
		t.Fatalf("expected trace_id on record, got %v", rec["trace_id"])
	}
}
