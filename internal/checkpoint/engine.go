// Package checkpoint evaluates a request context against an ordered registry
// of dignity rules. A rule that does not fire, or cannot evaluate, produces no
// finding; the engine never returns an error.
package checkpoint

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
)

// Severity grades a finding.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Confidence bounds.
const (
	MinConfidence        = 0.2
	confidencePerFinding = 0.15
)

// UserSignals describes the user's current state.
type UserSignals struct {
	Emotion     string             `json:"emotion,omitempty"`
	Constraints map[string]float64 `json:"constraints,omitempty"`
}

// SuggestedAction is the action the assistant is about to propose.
type SuggestedAction struct {
	Cost float64 `json:"cost"`
}

// Context is what rules evaluate. Missing fields mean a rule does not fire.
type Context struct {
	UserSignals     UserSignals      `json:"user_signals"`
	SuggestedAction *SuggestedAction `json:"suggested_action,omitempty"`
	Tone            string           `json:"tone,omitempty"`
	AboutToStorePII bool             `json:"about_to_store_pii"`
	// ConsentGated marks a PII write that the consent gate decides after the
	// checkpoint; rules must not block PII on their own when it is set.
	ConsentGated bool `json:"consent_gated"`
}

// Finding is a rule's output.
type Finding struct {
	RuleID   string         `json:"rule_id"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Signals  map[string]any `json:"signals,omitempty"`
}

// Result aggregates one run. Pass is false iff a finding has SeverityBlock.
type Result struct {
	Pass       bool      `json:"pass"`
	Findings   []Finding `json:"findings"`
	Confidence float64   `json:"confidence"`
}

// Blocked returns the blocking findings.
func (r Result) Blocked() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == SeverityBlock {
			out = append(out, f)
		}
	}
	return out
}

// Rule is a named check.
type Rule interface {
	ID() string
	Evaluate(Context) *Finding
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(Context) *Finding

type namedRule struct {
	id string
	fn RuleFunc
}

func (r namedRule) ID() string                    { return r.id }
func (r namedRule) Evaluate(ctx Context) *Finding { return r.fn(ctx) }

// NewRule builds a Rule from a function.
func NewRule(id string, fn RuleFunc) Rule { return namedRule{id: id, fn: fn} }

// Confidence is max(0.2, 1 - 0.15n) for n findings.
func Confidence(n int) float64 {
	return math.Max(MinConfidence, 1-confidencePerFinding*float64(n))
}

// Engine runs the registered rules in order.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
	audit *audit.Log
	log   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(log *zap.Logger) Option { return func(e *Engine) { e.log = log } }

// WithRules replaces the default registry.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = append([]Rule(nil), rules...) }
}

// New creates an Engine with DefaultRules.
func New(auditLog *audit.Log, opts ...Option) *Engine {
	e := &Engine{
		rules: DefaultRules(),
		audit: auditLog,
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Register appends r to the registry.
func (e *Engine) Register(r Rule) {
	e.mu.Lock()
	e.rules = append(e.rules, r)
	e.mu.Unlock()
}

// Rules returns the rule IDs in evaluation order.
func (e *Engine) Rules() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, len(e.rules))
	for i, r := range e.rules {
		ids[i] = r.ID()
	}
	return ids
}

// Run evaluates every rule against ctx and audits dignity_check.
func (e *Engine) Run(ctx Context) Result {
	e.mu.RLock()
	rules := append([]Rule(nil), e.rules...)
	e.mu.RUnlock()

	res := Result{Pass: true, Findings: []Finding{}}
	for _, r := range rules {
		f := e.evaluate(r, ctx)
		if f == nil {
			continue
		}
		res.Findings = append(res.Findings, *f)
		if f.Severity == SeverityBlock {
			res.Pass = false
		}
		metrics.CheckpointFindings.WithLabelValues(f.RuleID, string(f.Severity)).Inc()
	}
	res.Confidence = Confidence(len(res.Findings))

	severity := audit.SeverityInfo
	if !res.Pass {
		severity = audit.SeverityBlock
	} else if len(res.Findings) > 0 {
		severity = audit.SeverityWarning
	}
	e.audit.RecordSeverity("dignity_check", severity, map[string]any{
		"pass":       res.Pass,
		"findings":   len(res.Findings),
		"rules":      ruleIDs(res.Findings),
		"confidence": res.Confidence,
	})
	return res
}

// evaluate runs one rule. A panicking rule is treated as not firing.
func (e *Engine) evaluate(r Rule, ctx Context) (f *Finding) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Warn("checkpoint: rule panicked", zap.String("rule", r.ID()), zap.String("panic", fmt.Sprint(p)))
			f = nil
		}
	}()

	f = r.Evaluate(ctx)
	if f == nil {
		return nil
	}
	out := *f
	if out.RuleID == "" {
		out.RuleID = r.ID()
	}
	if out.Severity == "" {
		out.Severity = SeverityInfo
	}
	return &out
}

func ruleIDs(findings []Finding) []string {
	ids := make([]string, len(findings))
	for i, f := range findings {
		ids[i] = f.RuleID
	}
	return ids
}
