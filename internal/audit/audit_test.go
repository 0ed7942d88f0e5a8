package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/events"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/logging"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRecordAppendsInOrder(t *testing.T) {
	kv := store.NewMapKV()
	log := New(kv, WithClock(func() time.Time { return t0 }))

	log.Record("memory_upsert", map[string]any{"topic": "career"})
	log.RecordSeverity("dignity_check", SeverityWarning, map[string]any{"pass": true})

	all := log.All()
	require.Len(t, all, 2)
	assert.Equal(t, "memory_upsert", all[0].Action)
	assert.Equal(t, SeverityInfo, all[0].Severity)
	assert.Equal(t, "career", all[0].Details["topic"])
	assert.True(t, t0.Equal(all[0].Timestamp))
	assert.Equal(t, "dignity_check", all[1].Action)
	assert.Equal(t, SeverityWarning, all[1].Severity)
}

func TestRecordCapsToMostRecent(t *testing.T) {
	log := New(store.NewMapKV())

	for i := 0; i < DefaultCap+25; i++ {
		log.Record(fmt.Sprintf("a%d", i), nil)
	}

	all := log.All()
	require.Len(t, all, DefaultCap)
	assert.Equal(t, "a25", all[0].Action, "oldest entries dropped first")
	assert.Equal(t, fmt.Sprintf("a%d", DefaultCap+24), all[len(all)-1].Action)
}

func TestRecordPublishesAppended(t *testing.T) {
	bus := events.NewBus(nil)
	var got []Entry
	bus.Subscribe(events.AuditAppended, func(e events.Event) { got = append(got, e.Payload.(Entry)) })

	log := New(store.NewMapKV(), WithBus(bus))
	log.Record("consent_update", nil)

	require.Len(t, got, 1)
	assert.Equal(t, "consent_update", got[0].Action)
}

func TestRecordSurvivesWriteFailure(t *testing.T) {
	kv := store.NewMapKV()
	kv.FailWrites(true)
	logger, logs := logging.NewObserved(zapcore.DebugLevel)

	log := New(kv, WithLogger(logger))
	var entry Entry
	assert.NotPanics(t, func() { entry = log.Record("memory_upsert", nil) })

	assert.Equal(t, "memory_upsert", entry.Action)
	assert.Equal(t, 1, logs.FilterMessage("audit: persist failed").Len())
	assert.Empty(t, log.All())
}

func TestCorruptTrailResolvesEmpty(t *testing.T) {
	kv := store.NewMapKV()
	kv.Set(recordsKey, "garbage")

	log := New(kv)
	assert.Empty(t, log.All())

	log.Record("recovered", nil)
	require.Len(t, log.All(), 1)
}

func TestClearRequiresConfirmation(t *testing.T) {
	bus := events.NewBus(nil)
	cleared := 0
	bus.Subscribe(events.AuditCleared, func(events.Event) { cleared++ })

	log := New(store.NewMapKV(), WithBus(bus))
	log.Record("x", nil)

	assert.ErrorIs(t, log.Clear(nil), ErrNotConfirmed)
	assert.ErrorIs(t, log.Clear(func() bool { return false }), ErrNotConfirmed)
	assert.Len(t, log.All(), 1)
	assert.Zero(t, cleared)

	require.NoError(t, log.Clear(func() bool { return true }))
	assert.Empty(t, log.All())
	assert.Equal(t, 1, cleared)
}

func TestByAction(t *testing.T) {
	log := New(store.NewMapKV())
	log.Record("a", nil)
	log.Record("b", nil)
	log.Record("a", nil)

	assert.Len(t, log.ByAction("a"), 2)
	assert.Len(t, log.ByAction("b"), 1)
	assert.Empty(t, log.ByAction("c"))
}

func TestNilLogDiscards(t *testing.T) {
	var log *Log
	assert.NotPanics(t, func() { log.Record("x", nil) })
	assert.Nil(t, log.All())
	assert.NoError(t, log.Clear(func() bool { return true }))
	assert.ErrorIs(t, log.Clear(nil), ErrNotConfirmed)
}

func TestRecordCountsMetric(t *testing.T) {
	before := testutil.ToFloat64(metrics.AuditEntries.WithLabelValues("metric_check"))
	New(store.NewMapKV()).Record("metric_check", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AuditEntries.WithLabelValues("metric_check")))
}
