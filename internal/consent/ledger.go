// Package consent keeps the append-only ledger of consent decisions and decides
// when a consent review is due.
package consent

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/events"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

// Action is a consent decision.
type Action string

const (
	ActionAllow Action = "allow"
	ActionDeny  Action = "deny"
)

// ScopeMemory covers writes to the memory store.
const ScopeMemory = "memory"

// DefaultDriftPeriodDays is how long a memory consent stays fresh.
const DefaultDriftPeriodDays = 90

// Drift scan reasons.
const (
	ReasonNoRecords     = "no_records"
	ReasonPeriodElapsed = "period_elapsed"
)

const recordsKey = "consent"

// Record is one consent decision. Records are never mutated once appended.
type Record struct {
	ID        string         `json:"id"`
	Scope     string         `json:"scope"`
	Action    Action         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// PII reports whether the record's details carry a true "pii" flag.
func (r Record) PII() bool {
	v, _ := r.Details["pii"].(bool)
	return v
}

// Requirement signals that consent must be obtained before proceeding.
type Requirement struct {
	Scope   string         `json:"scope"`
	Details map[string]any `json:"details,omitempty"`
	Needed  bool           `json:"needed"`
}

// DriftOptions parameterises DriftScanIfDue.
type DriftOptions struct {
	// PeriodDays defaults to DefaultDriftPeriodDays.
	PeriodDays int
	// Topic is carried on the drift-due notification when known.
	Topic string
}

// Ledger is the consent ledger.
type Ledger struct {
	mu    sync.Mutex
	kv    store.KV
	audit *audit.Log
	bus   *events.Bus
	log   *zap.Logger
	now   func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithBus(bus *events.Bus) Option        { return func(l *Ledger) { l.bus = bus } }
func WithLogger(log *zap.Logger) Option     { return func(l *Ledger) { l.log = log } }
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

// New creates a Ledger persisting to kv and auditing through auditLog.
func New(kv store.KV, auditLog *audit.Log, opts ...Option) *Ledger {
	l := &Ledger{
		kv:    kv,
		audit: auditLog,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// All returns every record in append order. Unreadable data yields an empty list.
func (l *Ledger) All() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Add appends a record, filling scope "memory", action "deny", an id and a
// timestamp when unset. The returned error reports a failed durable write; the
// record is still returned and the failure is audited.
func (l *Ledger) Add(r Record) (Record, error) {
	if r.Scope == "" {
		r.Scope = ScopeMemory
	}
	if r.Action == "" {
		r.Action = ActionDeny
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now().UTC()
	}

	l.mu.Lock()
	records := append(l.load(), r)
	err := store.SaveList(l.kv, recordsKey, records)
	l.mu.Unlock()

	details := map[string]any{
		"id":        r.ID,
		"scope":     r.Scope,
		"action":    string(r.Action),
		"persisted": err == nil,
	}
	if err != nil {
		l.log.Error("consent: persist failed", zap.String("scope", r.Scope), zap.Error(err))
		l.audit.RecordSeverity("consent_update", audit.SeverityWarning, details)
		return r, fmt.Errorf("add consent: %w", err)
	}

	l.audit.Record("consent_update", details)
	l.bus.Publish(events.FlagsUpdated, r.Scope)
	return r, nil
}

// Grant records an allow decision for scope.
func (l *Ledger) Grant(scope string, details map[string]any) (Record, error) {
	return l.Add(Record{Scope: scope, Action: ActionAllow, Details: details})
}

// Deny records a deny decision for scope, revoking an earlier grant.
func (l *Ledger) Deny(scope string, details map[string]any) (Record, error) {
	return l.Add(Record{Scope: scope, Action: ActionDeny, Details: details})
}

// RequireConsent reports that consent is needed for scope. It is a query: the
// ledger is not modified.
func (l *Ledger) RequireConsent(scope string, details map[string]any) Requirement {
	l.audit.RecordSeverity("consent_required", audit.SeverityWarning, map[string]any{
		"scope":   scope,
		"details": details,
	})
	return Requirement{Scope: scope, Details: details, Needed: true}
}

// HasConsent reports whether the most recent decision for scope is allow.
func (l *Ledger) HasConsent(scope string) bool {
	latest, ok := latestFor(l.All(), scope)
	return ok && latest.Action == ActionAllow
}

// DriftScanIfDue reports whether a memory consent review is due: when no
// memory-scope record exists, or when the newest one is at least PeriodDays
// old. A due scan publishes drift-due and is audited.
func (l *Ledger) DriftScanIfDue(opts DriftOptions) bool {
	period := opts.PeriodDays
	if period <= 0 {
		period = DefaultDriftPeriodDays
	}

	latest, ok := latestFor(l.All(), ScopeMemory)
	now := l.now()

	due := false
	reason := ""
	var daysSince float64
	if !ok {
		due = true
		reason = ReasonNoRecords
	} else {
		daysSince = now.Sub(latest.CreatedAt).Hours() / 24
		if daysSince >= float64(period) {
			due = true
			reason = ReasonPeriodElapsed
		}
	}

	metrics.DriftScans.WithLabelValues(strconv.FormatBool(due)).Inc()
	if !due {
		return false
	}

	l.bus.Publish(events.DriftDue, events.DriftPayload{Topic: opts.Topic, Reason: reason})
	l.audit.Record("consent_drift_scan_due", map[string]any{
		"reason":      reason,
		"days_since":  daysSince,
		"period_days": period,
		"topic":       opts.Topic,
	})
	return true
}

// TriggerDriftReview requests a consent review regardless of record age.
func (l *Ledger) TriggerDriftReview(topic string) {
	l.bus.Publish(events.DriftDue, events.DriftPayload{Topic: topic, Manual: true})
	l.audit.Record("consent_drift_review_requested", map[string]any{"topic": topic})
}

// Clear deletes every record.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	err := l.kv.Remove(recordsKey)
	l.mu.Unlock()
	if err != nil {
		l.log.Error("consent: clear failed", zap.Error(err))
		return fmt.Errorf("clear consent: %w", err)
	}

	l.audit.RecordSeverity("consent_cleared", audit.SeverityWarning, nil)
	l.bus.Publish(events.FlagsUpdated, "")
	return nil
}

// load must be called with mu held.
func (l *Ledger) load() []Record {
	records, err := store.LoadList[Record](l.kv, recordsKey)
	if err != nil {
		l.log.Warn("consent: unreadable ledger, treating as empty", zap.Error(err))
		return nil
	}
	return records
}

// latestFor returns the newest record for scope. Equal timestamps resolve to
// the later append.
func latestFor(records []Record, scope string) (Record, bool) {
	var latest Record
	found := false
	for _, r := range records {
		if !strings.EqualFold(r.Scope, scope) {
			continue
		}
		if !found || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
			found = true
		}
	}
	return latest, found
}
