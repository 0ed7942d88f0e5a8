package trajectory

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

func newSignals(t *testing.T, opts ...SignalsOption) (*Signals, *store.MapKV, *audit.Log) {
	t.Helper()
	kv := store.NewMapKV()
	log := audit.New(kv)
	t0 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	opts = append([]SignalsOption{WithSignalsClock(func() time.Time { return t0 })}, opts...)
	return NewSignals(kv, log, opts...), kv, log
}

func TestRecordAndScores(t *testing.T) {
	s, _, log := newSignals(t)

	for _, score := range []float64{0.5, -0.25, 1} {
		_, err := s.Record("Career", score, "reflection")
		require.NoError(t, err)
	}
	s.Record("health", -1, "")

	assert.Equal(t, []float64{0.5, -0.25, 1}, s.Scores("career"))
	assert.Equal(t, []float64{-1}, s.Scores("HEALTH"))
	assert.Empty(t, s.Scores("family"))
	assert.Len(t, log.ByAction("outcome_signal"), 4)
}

func TestRecordCapsOldestFirst(t *testing.T) {
	s, _, _ := newSignals(t, WithSignalCap(3))
	for i := 0; i < 5; i++ {
		s.Record("t", float64(i), "")
	}

	assert.Equal(t, []float64{2, 3, 4}, s.Scores("t"))
	all := s.All()
	require.Len(t, all, 3)
	assert.NotEqual(t, all[0].ID, all[1].ID)
}

func TestRecordWriteFailure(t *testing.T) {
	s, kv, log := newSignals(t)
	kv.FailWrites(true)

	_, err := s.Record("t", 1, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrWrite))

	kv.FailWrites(false)
	assert.Empty(t, s.Scores("t"))
	assert.Empty(t, log.All(), "the audit write failed too")
}

func TestCorruptSignalsResolveEmpty(t *testing.T) {
	s, kv, _ := newSignals(t)
	kv.Set(signalsKey, "nope")

	assert.Empty(t, s.Scores("t"))
	_, err := s.Record("t", 1, "")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, s.Scores("t"))
}

func TestSignalsFeedClassifier(t *testing.T) {
	s, _, log := newSignals(t)
	for i := 0; i < 5; i++ {
		s.Record("career", 1, "")
	}

	c := NewClassifier(s, log)
	snap := c.Compute("career", Options{})
	assert.Equal(t, ConfidenceUp, snap.Stance)
	assert.Equal(t, 5, snap.Evidence.N)
}
