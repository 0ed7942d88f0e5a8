package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAllKinds(t *testing.T, f *fixture) {
	t.Helper()
	for _, k := range kinds {
		_, err := f.store.Upsert(Input{Topic: "career", Kind: k, Content: string(k)})
		require.NoError(t, err)
	}
}

func kindsOf(entries []Entry) []Kind {
	out := make([]Kind, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Kind)
	}
	return out
}

func TestDecayRemovesOnlyOldFleeting(t *testing.T) {
	f := newFixture(t)
	seedAllKinds(t, f)
	f.clock.Advance(8 * 24 * time.Hour)
	fresh, _ := f.store.Upsert(Input{Topic: "career", Content: "fresh thought"})

	n, err := f.store.DecayFleeting(f.clock.now, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	survivors := f.store.All()
	require.Len(t, survivors, 4)
	assert.Equal(t, fresh.ID, survivors[0].ID)
	assert.ElementsMatch(t, []Kind{Fleeting, AdaptiveAnchor, Legacy, Meta}, kindsOf(survivors))

	decayed := f.audit.ByAction("memory_decay")
	require.Len(t, decayed, 1)
	assert.Equal(t, float64(1), decayed[0].Details["removed"])
}

func TestDecayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedAllKinds(t, f)
	f.clock.Advance(30 * 24 * time.Hour)

	_, err := f.store.DecayFleeting(f.clock.now, time.Hour)
	require.NoError(t, err)
	first := f.store.All()

	n, err := f.store.DecayFleeting(f.clock.now, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, first, f.store.All())
	assert.Len(t, f.audit.ByAction("memory_decay"), 1, "no-op sweeps are not audited")
}

func TestDecayHorizonIsStrict(t *testing.T) {
	f := newFixture(t)
	f.store.Upsert(Input{Topic: "t", Content: "edge"})
	f.clock.Advance(time.Hour)

	n, err := f.store.DecayFleeting(f.clock.now, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "age equal to horizon is kept")

	n, err = f.store.DecayFleeting(f.clock.now.Add(time.Nanosecond), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDecayHonoursEntryTTL(t *testing.T) {
	f := newFixture(t)
	short, _ := f.store.Upsert(Input{Topic: "t", Content: "short", TTL: time.Minute})
	long, _ := f.store.Upsert(Input{Topic: "t", Content: "long", TTL: 48 * time.Hour})
	anchor, _ := f.store.Upsert(Input{Topic: "t", Kind: AdaptiveAnchor, Content: "anchor", TTL: time.Minute})
	f.clock.Advance(2 * time.Hour)

	n, err := f.store.DecayFleeting(f.clock.now, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids := map[string]bool{}
	for _, e := range f.store.All() {
		ids[e.ID] = true
	}
	assert.False(t, ids[short.ID])
	assert.True(t, ids[long.ID], "TTL longer than the horizon extends life")
	assert.True(t, ids[anchor.ID], "TTL never makes a durable kind decay")
}

func TestDecayDefaultHorizon(t *testing.T) {
	f := newFixture(t)
	f.store.Upsert(Input{Topic: "t", Content: "x"})

	n, _ := f.store.DecayFleeting(f.clock.now.Add(DefaultFleetingHorizon), 0)
	assert.Zero(t, n)
	n, _ = f.store.DecayFleeting(f.clock.now.Add(DefaultFleetingHorizon+time.Second), 0)
	assert.Equal(t, 1, n)
}

func TestDecayWriteFailureKeepsEntries(t *testing.T) {
	f := newFixture(t)
	f.store.Upsert(Input{Topic: "t", Content: "x"})
	f.kv.FailWrites(true)

	n, err := f.store.DecayFleeting(f.clock.now.Add(DefaultFleetingHorizon*2), 0)
	assert.Error(t, err)
	assert.Zero(t, n)

	f.kv.FailWrites(false)
	assert.Len(t, f.store.All(), 1)
}
