// Package trajectory turns a topic's history of outcome scores into a
// qualitative stance.
package trajectory

import (
	"time"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
)

// Stance labels a topic's recent outcome history.
type Stance string

const (
	ConfidenceUp      Stance = "ConfidenceUp"
	ResilienceFragile Stance = "ResilienceFragile"
	Stalled           Stance = "Stalled"
	Regressing        Stance = "Regressing"
	Breakthrough      Stance = "Breakthrough"
)

// Defaults for Options.
const (
	DefaultWindow      = 30
	DefaultTrendWindow = 5
)

// Evidence backs a stance.
type Evidence struct {
	Avg     float64 `json:"avg"`
	Trend   float64 `json:"trend"`
	N       int     `json:"n"`
	Density float64 `json:"density"`
}

// Snapshot is the result of Compute.
type Snapshot struct {
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Stance    Stance    `json:"stance"`
	Evidence  Evidence  `json:"evidence"`
}

// Options parameterises Compute.
type Options struct {
	// Window is how many of the most recent scores are considered.
	Window int
	// TrendWindow is how many of the most recent scores form the trend.
	TrendWindow int
}

// History supplies a topic's scores, oldest first.
type History interface {
	Scores(topic string) []float64
}

// HistoryFunc adapts a function to History.
type HistoryFunc func(topic string) []float64

func (f HistoryFunc) Scores(topic string) []float64 { return f(topic) }

// Classifier computes snapshots from a History.
type Classifier struct {
	history History
	audit   *audit.Log
	log     *zap.Logger
	now     func() time.Time
	opts    Options
}

// Option configures a Classifier.
type Option func(*Classifier)

func WithLogger(log *zap.Logger) Option     { return func(c *Classifier) { c.log = log } }
func WithClock(now func() time.Time) Option { return func(c *Classifier) { c.now = now } }

// WithDefaults sets the options used when Compute receives zero values.
func WithDefaults(o Options) Option { return func(c *Classifier) { c.opts = o } }

// NewClassifier creates a Classifier reading scores from history.
func NewClassifier(history History, auditLog *audit.Log, opts ...Option) *Classifier {
	c := &Classifier{
		history: history,
		audit:   auditLog,
		log:     zap.NewNop(),
		now:     time.Now,
		opts:    Options{Window: DefaultWindow, TrendWindow: DefaultTrendWindow},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compute classifies topic and audits acf_trajectory_snapshot.
func (c *Classifier) Compute(topic string, opts Options) Snapshot {
	if opts.Window <= 0 {
		opts.Window = c.opts.Window
	}
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = c.opts.TrendWindow
	}

	var scores []float64
	if c.history != nil {
		scores = c.history.Scores(topic)
	}
	stance, ev := Classify(scores, opts)

	snap := Snapshot{
		Topic:     topic,
		Timestamp: c.now().UTC(),
		Stance:    stance,
		Evidence:  ev,
	}
	c.log.Debug("trajectory: snapshot",
		zap.String("topic", topic), zap.String("stance", string(stance)), zap.Int("n", ev.N))
	c.audit.Record("acf_trajectory_snapshot", map[string]any{
		"topic":  topic,
		"stance": string(stance),
		"avg":    ev.Avg,
	})
	return snap
}

// Classify resolves a stance from scores (oldest first). Only the last
// opts.Window scores are considered.
//
// The branches are evaluated in order and the first match wins. Their ranges
// overlap; reordering them changes results.
func Classify(scores []float64, opts Options) (Stance, Evidence) {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = DefaultTrendWindow
	}

	if len(scores) > opts.Window {
		scores = scores[len(scores)-opts.Window:]
	}
	n := len(scores)
	if n == 0 {
		return Stalled, Evidence{}
	}

	avg := mean(scores)
	recent := scores
	if n > opts.TrendWindow {
		recent = scores[n-opts.TrendWindow:]
	}
	trend := mean(recent)

	negatives := 0
	for _, s := range scores {
		if s < 0 {
			negatives++
		}
	}

	ev := Evidence{
		Avg:     avg,
		Trend:   trend,
		N:       n,
		Density: float64(n) / float64(opts.Window),
	}

	switch {
	case avg >= 0.5 && trend >= 1:
		return ConfidenceUp, ev
	case avg < 0 && trend < 0:
		return Regressing, ev
	case avg >= 0.2 && trend >= 0:
		return Breakthrough, ev
	case avg < 0.2 && 2*negatives >= n:
		return ResilienceFragile, ev
	default:
		return Stalled, ev
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
