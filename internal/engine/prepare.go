package engine

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/checkpoint"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/memory"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/trajectory"
)

// Bundle is what Prepare assembles for the response generator.
type Bundle struct {
	Topic    string                 `json:"topic"`
	Snapshot trajectory.Snapshot    `json:"snapshot"`
	Memories []memory.Entry         `json:"memories"`
	Signals  checkpoint.UserSignals `json:"signals"`
	DriftDue bool                   `json:"drift_due"`
	Text     string                 `json:"text"`
}

// Prepare reads everything known about the input's topic. It never fails:
// a decay sweep that cannot persist is logged and the read continues.
func (e *Engine) Prepare(input string, signals checkpoint.UserSignals) Bundle {
	topic := e.ExtractTopic(input)

	if n, err := e.Decay(); err != nil {
		e.log.Warn("prepare: decay sweep failed", zap.Error(err))
	} else if n > 0 {
		e.log.Info("prepare: decayed fleeting memories", zap.Int("removed", n))
	}

	b := Bundle{
		Topic:    topic,
		Snapshot: e.Trajectory.Compute(topic, trajectory.Options{}),
		Memories: e.Memory.QueryByTopic(topic, memory.QueryOptions{Limit: e.settings.PrepareLimit}),
		Signals:  signals,
	}
	b.DriftDue = e.Consent.DriftScanIfDue(e.driftOptions(topic))
	b.Text = buildContext(b)
	return b
}

// buildContext renders a bundle as the markdown block injected ahead of
// generation.
func buildContext(b Bundle) string {
	var sb strings.Builder

	sb.WriteString("<context>\n## Adaptive Continuity\n")
	sb.WriteString(fmt.Sprintf("\nTopic: %s\n", b.Topic))

	ev := b.Snapshot.Evidence
	sb.WriteString(fmt.Sprintf("Trajectory: %s (avg %.2f, trend %.2f, n=%d)\n", b.Snapshot.Stance, ev.Avg, ev.Trend, ev.N))

	emotion := b.Signals.Emotion
	if emotion == "" {
		emotion = "unknown"
	}
	sb.WriteString(fmt.Sprintf("Emotional state: %s\n", emotion))

	if len(b.Signals.Constraints) > 0 {
		names := make([]string, 0, len(b.Signals.Constraints))
		for k := range b.Signals.Constraints {
			names = append(names, k)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, k := range names {
			parts = append(parts, fmt.Sprintf("%s=%.2f", k, b.Signals.Constraints[k]))
		}
		sb.WriteString(fmt.Sprintf("Constraints: %s\n", strings.Join(parts, ", ")))
	}

	sb.WriteString(fmt.Sprintf("Prior memories: %d\n", len(b.Memories)))
	if len(b.Memories) > 0 {
		sb.WriteString("\n### Recent Memories\n")
		for _, m := range b.Memories {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", m.Kind, m.Content))
		}
	}

	if b.DriftDue {
		sb.WriteString("\n### Consent\nA memory consent review is due.\n")
	}

	sb.WriteString("</context>")
	return sb.String()
}
