package trajectory

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

// DefaultSignalCap is the number of signals kept; the oldest are dropped first.
const DefaultSignalCap = 1000

const signalsKey = "signals"

// Signal is one outcome score for a topic. Scores are expected in [-1, 1]
// but are not clamped.
type Signal struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Score     float64   `json:"score"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Signals is the persisted outcome-signal collection, kept oldest-first.
type Signals struct {
	mu      sync.Mutex
	kv      store.KV
	audit   *audit.Log
	log     *zap.Logger
	now     func() time.Time
	cap     int
	entropy io.Reader
}

// SignalsOption configures Signals.
type SignalsOption func(*Signals)

func WithSignalsLogger(log *zap.Logger) SignalsOption     { return func(s *Signals) { s.log = log } }
func WithSignalsClock(now func() time.Time) SignalsOption { return func(s *Signals) { s.now = now } }

// WithSignalCap overrides DefaultSignalCap.
func WithSignalCap(n int) SignalsOption {
	return func(s *Signals) {
		if n > 0 {
			s.cap = n
		}
	}
}

// NewSignals creates the collection persisting to kv.
func NewSignals(kv store.KV, auditLog *audit.Log, opts ...SignalsOption) *Signals {
	s := &Signals{
		kv:      kv,
		audit:   auditLog,
		log:     zap.NewNop(),
		now:     time.Now,
		cap:     DefaultSignalCap,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record appends a score for topic.
func (s *Signals) Record(topic string, score float64, source string) (Signal, error) {
	now := s.now()

	s.mu.Lock()
	sig := Signal{
		ID:        ulid.MustNew(ulid.Timestamp(now), s.entropy).String(),
		Topic:     strings.TrimSpace(topic),
		Score:     score,
		Source:    source,
		CreatedAt: now.UTC(),
	}
	signals := append(s.load(), sig)
	if len(signals) > s.cap {
		signals = signals[len(signals)-s.cap:]
	}
	err := store.SaveList(s.kv, signalsKey, signals)
	s.mu.Unlock()

	details := map[string]any{"topic": sig.Topic, "score": score, "source": source}
	if err != nil {
		s.log.Error("trajectory: signal persist failed", zap.String("topic", sig.Topic), zap.Error(err))
		details["persisted"] = false
		s.audit.RecordSeverity("outcome_signal", audit.SeverityWarning, details)
		return sig, fmt.Errorf("record signal: %w", err)
	}
	s.audit.Record("outcome_signal", details)
	return sig, nil
}

// All returns every signal, oldest first.
func (s *Signals) All() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Scores returns the scores recorded for topic, oldest first. Topics match
// case-insensitively.
func (s *Signals) Scores(topic string) []float64 {
	topic = strings.TrimSpace(topic)
	var out []float64
	for _, sig := range s.All() {
		if strings.EqualFold(sig.Topic, topic) {
			out = append(out, sig.Score)
		}
	}
	return out
}

// load must be called with mu held.
func (s *Signals) load() []Signal {
	signals, err := store.LoadList[Signal](s.kv, signalsKey)
	if err != nil {
		s.log.Warn("trajectory: unreadable signals, treating as empty", zap.Error(err))
		return nil
	}
	return signals
}
