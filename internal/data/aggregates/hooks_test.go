package aggregates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/reforest-backend/internal/pkg/logger"
)

func TestMultiHooksFansOut(t *testing.T) {
	a, b := &spyHooks{}, &spyHooks{}
	h := MultiHooks(a, nil, NewObservabilityHooks(nil), b)

	h.ObserveOperation("Interventions.Create", "success", time.Millisecond)
	h.IncConflict("Interventions.TransferOwnership")
	h.IncRetry("Interventions.ReconcileSpecies")
	h.ObserveBatch(StageTrees, 3, 1, true)

	for _, spy := range []*spyHooks{a, b} {
		require.Equal(t, []spyOperation{{Name: "Interventions.Create", Status: "success"}}, spy.Operations)
		require.Equal(t, []string{"Interventions.TransferOwnership"}, spy.Conflicts)
		require.Equal(t, []string{"Interventions.ReconcileSpecies"}, spy.Retries)
		require.Equal(t, []string{StageTrees}, spy.Batches)
	}
}

func TestMultiHooksCollapses(t *testing.T) {
	require.Equal(t, noopHooks{}, MultiHooks())
	require.Equal(t, noopHooks{}, MultiHooks(nil, NewLoggingHooks(nil)))

	only := &spyHooks{}
	require.Same(t, only, MultiHooks(nil, only))
}

func TestLoggingHooksReportsDegradedStages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := NewLoggingHooks(&logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	h.ObserveBatch(StageInterventions, 10, 0, false)
	h.ObserveBatch(StageSpecies, 8, 2, false)
	h.ObserveBatch(StageTrees, 5, 1, true)
	h.IncConflict("Interventions.Create")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, StageSpecies, entries[0].ContextMap()["stage"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, StageTrees, entries[1].ContextMap()["stage"])
	require.EqualValues(t, 1, entries[1].ContextMap()["failed"])
}
