package trajectory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   Stance
	}{
		{"empty", nil, Stalled},
		{"all positive", []float64{1, 1, 1, 1, 1}, ConfidenceUp},
		{"all negative", []float64{-1, -1, -1}, Regressing},
		{"moderate gains", []float64{0.3, 0.3, 0.3}, Breakthrough},
		{"high average, trend below one", []float64{1, 1, 1, 1, 0.5}, Breakthrough},
		{"negative average, recovering trend", []float64{-1, -1, -1, -1, -1, 0.5, 0.5, 0, 0, 0}, ResilienceFragile},
		{"flat zero", []float64{0, 0, 0}, Stalled},
		{"positive average, falling trend", []float64{1, 1, 1, 1, 1, -0.2, -0.2, -0.2, -0.2, -0.2}, Stalled},
		{"low average, mostly positive", []float64{0.1, 0.1, 0.1, -0.1}, Stalled},
		{"half negative", []float64{0.3, -0.1, 0.3, -0.1}, ResilienceFragile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Classify(tt.scores, Options{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyEvidence(t *testing.T) {
	stance, ev := Classify(nil, Options{})
	assert.Equal(t, Stalled, stance)
	assert.Zero(t, ev.Density)
	assert.Zero(t, ev.N)

	stance, ev = Classify([]float64{1, 1, 1, 1, 1}, Options{})
	assert.Equal(t, ConfidenceUp, stance)
	assert.InDelta(t, 1.0, ev.Avg, 1e-9)
	assert.InDelta(t, 1.0, ev.Trend, 1e-9)
	assert.Equal(t, 5, ev.N)
	assert.InDelta(t, 5.0/30.0, ev.Density, 1e-9)

	stance, ev = Classify([]float64{-1, -1, -1}, Options{})
	assert.Equal(t, Regressing, stance)
	assert.InDelta(t, -1.0, ev.Avg, 1e-9)
	assert.InDelta(t, -1.0, ev.Trend, 1e-9)
}

func TestClassifyTrendUsesLastFive(t *testing.T) {
	_, ev := Classify([]float64{-1, -1, 1, 1, 1, 1, 1}, Options{})
	assert.InDelta(t, 1.0, ev.Trend, 1e-9)
	assert.InDelta(t, 3.0/7.0, ev.Avg, 1e-9)
}

func TestClassifyWindowKeepsMostRecent(t *testing.T) {
	scores := make([]float64, 0, 40)
	for i := 0; i < 10; i++ {
		scores = append(scores, -1)
	}
	for i := 0; i < 30; i++ {
		scores = append(scores, 1)
	}

	stance, ev := Classify(scores, Options{})
	assert.Equal(t, ConfidenceUp, stance, "old negatives fall outside the window")
	assert.Equal(t, 30, ev.N)
	assert.InDelta(t, 1.0, ev.Density, 1e-9)

	_, ev = Classify(scores, Options{Window: 40})
	assert.InDelta(t, 0.5, ev.Avg, 1e-9)
}

func TestComputeReadsHistoryAndAudits(t *testing.T) {
	kv := store.NewMapKV()
	log := audit.New(kv)
	t0 := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	history := HistoryFunc(func(topic string) []float64 {
		if topic == "career" {
			return []float64{-1, -1, -1}
		}
		return nil
	})
	c := NewClassifier(history, log, WithClock(func() time.Time { return t0 }))

	snap := c.Compute("career", Options{})
	assert.Equal(t, Regressing, snap.Stance)
	assert.Equal(t, "career", snap.Topic)
	assert.True(t, t0.Equal(snap.Timestamp))

	snap = c.Compute("unknown", Options{})
	assert.Equal(t, Stalled, snap.Stance)

	entries := log.ByAction("acf_trajectory_snapshot")
	require.Len(t, entries, 2)
	assert.Equal(t, "career", entries[0].Details["topic"])
	assert.Equal(t, string(Regressing), entries[0].Details["stance"])
	assert.Equal(t, float64(-1), entries[0].Details["avg"])
}

func TestComputeUsesConfiguredDefaults(t *testing.T) {
	history := HistoryFunc(func(string) []float64 { return []float64{1, 1} })
	c := NewClassifier(history, nil, WithDefaults(Options{Window: 4, TrendWindow: 1}))

	snap := c.Compute("t", Options{})
	assert.InDelta(t, 0.5, snap.Evidence.Density, 1e-9)
}

func TestComputeWithoutHistory(t *testing.T) {
	c := NewClassifier(nil, nil)
	snap := c.Compute("t", Options{})
	assert.Equal(t, Stalled, snap.Stance)
	assert.Zero(t, snap.Evidence.Density)
}
