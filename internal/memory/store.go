package memory

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/redact"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

// DefaultCap is the number of entries kept; the oldest are dropped first.
const DefaultCap = 500

// DefaultQueryLimit is the QueryByTopic limit when none is given.
const DefaultQueryLimit = 20

const recordsKey = "memory"

// QueryOptions filters QueryByTopic.
type QueryOptions struct {
	// Kinds restricts results to these kinds when non-empty.
	Kinds []Kind
	// Limit defaults to DefaultQueryLimit.
	Limit int
}

// Store is the memory collection, kept newest-first.
type Store struct {
	mu      sync.Mutex
	kv      store.KV
	audit   *audit.Log
	log     *zap.Logger
	now     func() time.Time
	cap     int
	scrub   *redact.Scrubber
	entropy io.Reader
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(log *zap.Logger) Option     { return func(s *Store) { s.log = log } }
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithCap overrides DefaultCap.
func WithCap(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithScrubber removes secrets from content before it is stored. Pass nil to
// store content verbatim.
func WithScrubber(sc *redact.Scrubber) Option { return func(s *Store) { s.scrub = sc } }

// New creates a Store persisting to kv. Secrets are scrubbed with the default
// rules unless WithScrubber says otherwise.
func New(kv store.KV, auditLog *audit.Log, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		audit:   auditLog,
		log:     zap.NewNop(),
		now:     time.Now,
		cap:     DefaultCap,
		scrub:   redact.New(),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upsert stores a new entry built from in and returns it. The returned error
// wraps store.ErrWrite when the collection could not be persisted; the entry
// is still returned so callers can report what was lost.
func (s *Store) Upsert(in Input) (Entry, error) {
	now := s.now()

	content := in.Content
	var redactions []Redaction
	if s.scrub != nil {
		res := s.scrub.Scrub(content)
		content = res.Text
		redactions = res.Removed
	}
	if len(content) > MaxContentBytes {
		s.log.Debug("memory: truncating content",
			zap.String("topic", in.Topic), zap.Int("chars", len(content)))
		content = truncateClean(content, MaxContentBytes)
	}
	in.Content = content
	in.Redactions = append(append([]Redaction(nil), in.Redactions...), redactions...)

	s.mu.Lock()
	entry := NewEntry(in, s.newID(now), now)
	entries := append([]Entry{entry}, s.load()...)
	if len(entries) > s.cap {
		entries = entries[:s.cap]
	}
	err := store.SaveList(s.kv, recordsKey, entries)
	s.mu.Unlock()

	details := map[string]any{
		"id":     entry.ID,
		"topic":  entry.Topic,
		"kind":   string(entry.Kind),
		"weight": entry.Weight,
	}
	if len(entry.Redactions) > 0 {
		details["redactions"] = len(entry.Redactions)
	}
	if err != nil {
		s.log.Error("memory: persist failed", zap.String("topic", entry.Topic), zap.Error(err))
		details["persisted"] = false
		s.audit.RecordSeverity("memory_upsert", audit.SeverityWarning, details)
		return entry, fmt.Errorf("upsert memory: %w", err)
	}

	metrics.MemoryUpserts.WithLabelValues(string(entry.Kind)).Inc()
	metrics.MemoryEntries.Set(float64(len(entries)))
	s.audit.Record("memory_upsert", details)
	return entry, nil
}

// QueryByTopic returns entries whose topic matches case-insensitively,
// most recent first.
func (s *Store) QueryByTopic(topic string, opts QueryOptions) []Entry {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var out []Entry
	for _, e := range s.All() {
		if !sameTopic(e.Topic, topic) || !hasKind(opts.Kinds, e.Kind) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// All returns every entry, newest first. Unreadable data yields an empty list.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Delete removes the entry with id. It reports whether an entry was removed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	entries := s.load()
	kept := entries[:0:0]
	var removed *Entry
	for i := range entries {
		if entries[i].ID == id {
			removed = &entries[i]
			continue
		}
		kept = append(kept, entries[i])
	}
	if removed == nil {
		s.mu.Unlock()
		return false, nil
	}
	err := store.SaveList(s.kv, recordsKey, kept)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("memory: delete persist failed", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("delete memory %s: %w", id, err)
	}
	metrics.MemoryEntries.Set(float64(len(kept)))
	s.audit.Record("memory_delete", map[string]any{"id": id, "topic": removed.Topic})
	return true, nil
}

// Wipe removes every entry regardless of kind.
func (s *Store) Wipe() error {
	s.mu.Lock()
	n := len(s.load())
	err := s.kv.Remove(recordsKey)
	s.mu.Unlock()

	if err != nil {
		s.log.Error("memory: wipe failed", zap.Error(err))
		return fmt.Errorf("wipe memory: %w", err)
	}
	metrics.MemoryEntries.Set(0)
	s.audit.RecordSeverity("memory_wiped", audit.SeverityWarning, map[string]any{"removed": n})
	return nil
}

// load must be called with mu held.
func (s *Store) load() []Entry {
	entries, err := store.LoadList[Entry](s.kv, recordsKey)
	if err != nil {
		s.log.Warn("memory: unreadable collection, treating as empty", zap.Error(err))
		return nil
	}
	return entries
}

// newID must be called with mu held; the monotonic entropy source is not
// safe for concurrent use.
func (s *Store) newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

func hasKind(kinds []Kind, k Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
