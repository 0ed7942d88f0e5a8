// Package engine is the continuity orchestrator: Prepare reads what is known
// about a topic, Finalize gates and persists what was decided.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/checkpoint"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/consent"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/events"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/memory"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/redact"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/trajectory"
)

// Settings tunes the components an Engine builds. Zero values take each
// component's default.
type Settings struct {
	MemoryCap       int
	FleetingHorizon time.Duration
	QueryLimit      int
	PrepareLimit    int
	DriftPeriodDays int
	AuditCap        int
	Window          int
	TrendWindow     int
	SignalCap       int
}

// DefaultPrepareLimit is how many prior memories Prepare reads.
const DefaultPrepareLimit = 8

// Engine composes the continuity components into the prepare/finalize
// lifecycle. The components are exported for callers that need direct
// access (listing, wiping, recording signals).
type Engine struct {
	Audit      *audit.Log
	Memory     *memory.Store
	Consent    *consent.Ledger
	Checkpoint *checkpoint.Engine
	Signals    *trajectory.Signals
	Trajectory *trajectory.Classifier
	Bus        *events.Bus

	topics   TopicExtractor
	scrub    *redact.Scrubber
	rules    []checkpoint.Rule
	settings Settings
	log      *zap.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithBus delivers drift-due, audit and flag notifications on bus.
func WithBus(bus *events.Bus) Option { return func(e *Engine) { e.Bus = bus } }

func WithLogger(log *zap.Logger) Option     { return func(e *Engine) { e.log = log } }
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithSettings(s Settings) Option        { return func(e *Engine) { e.settings = s } }

// WithTopicExtractor replaces the default slug extractor.
func WithTopicExtractor(t TopicExtractor) Option { return func(e *Engine) { e.topics = t } }

// WithRules appends checkpoint rules after the defaults.
func WithRules(rules ...checkpoint.Rule) Option {
	return func(e *Engine) { e.rules = append(e.rules, rules...) }
}

// New builds every component over kv.
func New(kv store.KV, opts ...Option) *Engine {
	e := &Engine{
		topics: SlugTopics(DefaultTopicWords),
		scrub:  redact.New(),
		log:    zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.Bus == nil {
		e.Bus = events.NewBus(e.log.Named("events"))
	}
	if e.settings.QueryLimit <= 0 {
		e.settings.QueryLimit = memory.DefaultQueryLimit
	}
	if e.settings.PrepareLimit <= 0 {
		e.settings.PrepareLimit = DefaultPrepareLimit
	}
	if e.settings.FleetingHorizon <= 0 {
		e.settings.FleetingHorizon = memory.DefaultFleetingHorizon
	}

	e.Audit = audit.New(kv,
		audit.WithBus(e.Bus),
		audit.WithLogger(e.log.Named("audit")),
		audit.WithClock(e.now),
		audit.WithCap(e.settings.AuditCap),
	)
	e.Memory = memory.New(kv, e.Audit,
		memory.WithLogger(e.log.Named("memory")),
		memory.WithClock(e.now),
		memory.WithCap(e.settings.MemoryCap),
		memory.WithScrubber(e.scrub),
	)
	e.Consent = consent.New(kv, e.Audit,
		consent.WithBus(e.Bus),
		consent.WithLogger(e.log.Named("consent")),
		consent.WithClock(e.now),
	)
	e.Checkpoint = checkpoint.New(e.Audit, checkpoint.WithLogger(e.log.Named("checkpoint")))
	for _, r := range e.rules {
		e.Checkpoint.Register(r)
	}
	e.Signals = trajectory.NewSignals(kv, e.Audit,
		trajectory.WithSignalsLogger(e.log.Named("trajectory")),
		trajectory.WithSignalsClock(e.now),
		trajectory.WithSignalCap(e.settings.SignalCap),
	)
	e.Trajectory = trajectory.NewClassifier(e.Signals, e.Audit,
		trajectory.WithLogger(e.log.Named("trajectory")),
		trajectory.WithClock(e.now),
		trajectory.WithDefaults(trajectory.Options{
			Window:      e.settings.Window,
			TrendWindow: e.settings.TrendWindow,
		}),
	)
	return e
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// Decay runs the Fleeting sweep with the configured horizon.
func (e *Engine) Decay() (int, error) {
	return e.Memory.DecayFleeting(e.now(), e.settings.FleetingHorizon)
}

// ExtractTopic resolves the topic of text with the configured extractor.
func (e *Engine) ExtractTopic(text string) string {
	return e.topics.ExtractTopic(text)
}

func (e *Engine) driftOptions(topic string) consent.DriftOptions {
	return consent.DriftOptions{PeriodDays: e.settings.DriftPeriodDays, Topic: topic}
}
