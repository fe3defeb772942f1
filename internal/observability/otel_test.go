package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestClampRatio(t *testing.T) {
	require.Equal(t, 0.1, clampRatio(0))
	require.Equal(t, 0.1, clampRatio(-2))
	require.Equal(t, 0.25, clampRatio(0.25))
	require.Equal(t, 1.0, clampRatio(3))
}

func TestFailSpanMarksError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, clean := tp.Tracer("test").Start(context.Background(), "Interventions.Create")
	FailSpan(clean, nil, "success")
	clean.End()

	_, bad := tp.Tracer("test").Start(context.Background(), "Interventions.TransferOwnership")
	FailSpan(bad, errors.New("stale version"), "conflict")
	bad.End()

	ended := rec.Ended()
	require.Len(t, ended, 2)
	require.Equal(t, codes.Unset, ended[0].Status().Code)
	require.Equal(t, codes.Error, ended[1].Status().Code)
	require.Equal(t, "conflict", ended[1].Status().Description)
	require.Len(t, ended[1].Events(), 1)
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "Interventions.BulkIngest")
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	span.End()
}
