// Package audit is the append-only, size-capped event trail every continuity
// component writes through. Writing to the trail never fails the caller.
package audit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/events"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

// Severity grades an audit entry.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityBlock   Severity = "block"
)

// DefaultCap is the number of most recent entries kept.
const DefaultCap = 100

const recordsKey = "audit"

// ErrNotConfirmed is returned by Clear when the caller did not confirm.
var ErrNotConfirmed = errors.New("audit: clear not confirmed")

// Entry is one audit record.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Severity  Severity       `json:"severity"`
}

// Log is the audit trail. A nil *Log discards records.
type Log struct {
	mu  sync.Mutex
	kv  store.KV
	bus *events.Bus
	log *zap.Logger
	now func() time.Time
	cap int
}

// Option configures a Log.
type Option func(*Log)

// WithBus publishes audit-appended and audit-cleared on bus.
func WithBus(bus *events.Bus) Option { return func(l *Log) { l.bus = bus } }

// WithLogger sets the channel persistence failures are reported on.
func WithLogger(log *zap.Logger) Option { return func(l *Log) { l.log = log } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(l *Log) { l.now = now } }

// WithCap overrides DefaultCap.
func WithCap(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.cap = n
		}
	}
}

// New creates a Log persisting to kv.
func New(kv store.KV, opts ...Option) *Log {
	l := &Log{
		kv:  kv,
		log: zap.NewNop(),
		now: time.Now,
		cap: DefaultCap,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record appends an info entry.
func (l *Log) Record(action string, details map[string]any) Entry {
	return l.RecordSeverity(action, SeverityInfo, details)
}

// RecordSeverity appends an entry, keeps the most recent cap entries and
// notifies subscribers. A failed durable write is logged and swallowed.
func (l *Log) RecordSeverity(action string, severity Severity, details map[string]any) Entry {
	if l == nil {
		return Entry{}
	}

	entry := Entry{
		Timestamp: l.now().UTC(),
		Action:    action,
		Details:   copyDetails(details),
		Severity:  severity,
	}

	l.mu.Lock()
	entries := l.load()
	entries = append(entries, entry)
	if len(entries) > l.cap {
		entries = entries[len(entries)-l.cap:]
	}
	if err := store.SaveList(l.kv, recordsKey, entries); err != nil {
		l.log.Error("audit: persist failed", zap.String("action", action), zap.Error(err))
	}
	l.mu.Unlock()

	metrics.AuditEntries.WithLabelValues(action).Inc()
	l.bus.Publish(events.AuditAppended, entry)
	return entry
}

// All returns every retained entry, oldest first.
func (l *Log) All() []Entry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// ByAction returns the retained entries with the given action, oldest first.
func (l *Log) ByAction(action string) []Entry {
	var out []Entry
	for _, e := range l.All() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Clear deletes every entry once confirm returns true.
func (l *Log) Clear(confirm func() bool) error {
	if confirm == nil || !confirm() {
		return ErrNotConfirmed
	}
	if l == nil {
		return nil
	}

	l.mu.Lock()
	err := l.kv.Remove(recordsKey)
	l.mu.Unlock()
	if err != nil {
		l.log.Error("audit: clear failed", zap.Error(err))
		return fmt.Errorf("clear audit: %w", err)
	}

	l.bus.Publish(events.AuditCleared, nil)
	return nil
}

// load must be called with mu held. Corrupt data resolves to an empty trail.
func (l *Log) load() []Entry {
	entries, err := store.LoadList[Entry](l.kv, recordsKey)
	if err != nil {
		l.log.Warn("audit: unreadable trail, starting empty", zap.Error(err))
		return nil
	}
	return entries
}

func copyDetails(d map[string]any) map[string]any {
	if len(d) == 0 {
		return nil
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
