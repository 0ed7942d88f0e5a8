package memory

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

// Decay policy:
//   - Only Fleeting entries decay. AdaptiveAnchor, Legacy and Meta persist
//     until deleted or wiped.
//   - A Fleeting entry is removed once now - CreatedAt > horizon. An entry's
//     own TTL replaces the horizon when set.
//   - The sweep is lazy: the orchestrator runs it before reads. There is no
//     background timer.
//   - Running the sweep twice with the same now yields the same survivors.

// DefaultFleetingHorizon is the age past which a Fleeting entry is removed.
const DefaultFleetingHorizon = 7 * 24 * time.Hour

// expired reports whether e should be removed by a sweep at now.
func expired(e Entry, now time.Time, horizon time.Duration) bool {
	if !e.Kind.Decays() {
		return false
	}
	if e.TTL != nil && *e.TTL > 0 {
		horizon = time.Duration(*e.TTL)
	}
	return e.Age(now) > horizon
}

// DecayFleeting removes Fleeting entries older than horizon and returns how
// many were removed. A non-positive horizon uses DefaultFleetingHorizon.
func (s *Store) DecayFleeting(now time.Time, horizon time.Duration) (int, error) {
	if horizon <= 0 {
		horizon = DefaultFleetingHorizon
	}

	s.mu.Lock()
	entries := s.load()
	kept := entries[:0:0]
	var removed []string
	for _, e := range entries {
		if expired(e, now, horizon) {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := store.SaveList(s.kv, recordsKey, kept)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("memory: decay persist failed", zap.Int("removed", len(removed)), zap.Error(err))
		return 0, fmt.Errorf("decay fleeting: %w", err)
	}

	metrics.MemoryDecayed.Add(float64(len(removed)))
	metrics.MemoryEntries.Set(float64(len(kept)))
	s.audit.Record("memory_decay", map[string]any{
		"removed": len(removed),
		"ids":     removed,
		"horizon": horizon.String(),
	})
	return len(removed), nil
}
