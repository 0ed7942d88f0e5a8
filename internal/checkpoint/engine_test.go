package checkpoint

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/logging"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/metrics"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/store"
)

func newEngine(t *testing.T, opts ...Option) (*Engine, *audit.Log) {
	t.Helper()
	log := audit.New(store.NewMapKV())
	return New(log, opts...), log
}

func TestRunCleanContextPasses(t *testing.T) {
	e, log := newEngine(t)

	res := e.Run(Context{})
	assert.True(t, res.Pass)
	assert.Empty(t, res.Findings)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)

	checks := log.ByAction("dignity_check")
	require.Len(t, checks, 1)
	assert.Equal(t, true, checks[0].Details["pass"])
	assert.Equal(t, audit.SeverityInfo, checks[0].Severity)
}

func TestRespectConstraints(t *testing.T) {
	tests := []struct {
		name      string
		financial float64
		set       bool
		action    *SuggestedAction
		fire      bool
	}{
		{"constrained with cost", 0.6, true, &SuggestedAction{Cost: 20}, true},
		{"highly constrained", 0.95, true, &SuggestedAction{Cost: 0.01}, true},
		{"below threshold", 0.59, true, &SuggestedAction{Cost: 20}, false},
		{"free action", 0.9, true, &SuggestedAction{Cost: 0}, false},
		{"no action", 0.9, true, nil, false},
		{"no constraint", 0, false, &SuggestedAction{Cost: 20}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t)
			ctx := Context{SuggestedAction: tt.action}
			if tt.set {
				ctx.UserSignals.Constraints = map[string]float64{"financial": tt.financial}
			}

			res := e.Run(ctx)
			if !tt.fire {
				assert.Empty(t, res.Findings)
				return
			}
			require.Len(t, res.Findings, 1)
			assert.Equal(t, RuleRespectConstraints, res.Findings[0].RuleID)
			assert.Equal(t, SeverityWarn, res.Findings[0].Severity)
			assert.True(t, res.Pass, "warnings do not block")
		})
	}
}

func TestAvoidPressure(t *testing.T) {
	tests := []struct {
		emotion, tone string
		fire          bool
	}{
		{"anxious", "urgent", true},
		{"Anxious", "URGENT", true},
		{"anxious", "calm", false},
		{"calm", "urgent", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.emotion, tt.tone), func(t *testing.T) {
			e, _ := newEngine(t)
			res := e.Run(Context{UserSignals: UserSignals{Emotion: tt.emotion}, Tone: tt.tone})
			if tt.fire {
				require.Len(t, res.Findings, 1)
				assert.Equal(t, RuleAvoidPressure, res.Findings[0].RuleID)
				assert.Equal(t, SeverityWarn, res.Findings[0].Severity)
			} else {
				assert.Empty(t, res.Findings)
			}
		})
	}
}

func TestNoUnconsentedMemory(t *testing.T) {
	e, log := newEngine(t)

	res := e.Run(Context{AboutToStorePII: true})
	assert.False(t, res.Pass)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, RuleNoUnconsentedMemory, res.Findings[0].RuleID)
	assert.Equal(t, SeverityBlock, res.Findings[0].Severity)
	assert.Len(t, res.Blocked(), 1)
	assert.Equal(t, audit.SeverityBlock, log.ByAction("dignity_check")[0].Severity)

	res = e.Run(Context{AboutToStorePII: true, ConsentGated: true})
	assert.True(t, res.Pass, "a consent-gated write is left to the consent check")
	assert.Empty(t, res.Findings)
}

func TestFindingsKeepRegistryOrder(t *testing.T) {
	e, _ := newEngine(t)

	res := e.Run(Context{
		UserSignals:     UserSignals{Emotion: "anxious", Constraints: map[string]float64{"financial": 0.8}},
		SuggestedAction: &SuggestedAction{Cost: 5},
		Tone:            "urgent",
		AboutToStorePII: true,
	})
	require.Len(t, res.Findings, 3)
	assert.Equal(t, []string{RuleRespectConstraints, RuleAvoidPressure, RuleNoUnconsentedMemory}, ruleIDs(res.Findings))
	assert.False(t, res.Pass)
	assert.InDelta(t, 0.55, res.Confidence, 1e-9)
}

func TestConfidence(t *testing.T) {
	want := []float64{1.0, 0.85, 0.7, 0.55, 0.4, 0.25, 0.2, 0.2, 0.2}
	for n, w := range want {
		assert.InDelta(t, w, Confidence(n), 1e-9, "n=%d", n)
	}
}

func TestPassIffNoBlock(t *testing.T) {
	severities := []Severity{SeverityInfo, SeverityWarn, SeverityBlock}
	// Every combination of up to three custom findings.
	for mask := 0; mask < 27; mask++ {
		var rules []Rule
		block := false
		m := mask
		for i := 0; i < 3; i++ {
			sev := severities[m%3]
			m /= 3
			if sev == SeverityBlock {
				block = true
			}
			rules = append(rules, NewRule(fmt.Sprintf("r%d", i), func(Context) *Finding {
				return &Finding{Severity: sev, Message: "x"}
			}))
		}

		e, _ := newEngine(t, WithRules(rules...))
		res := e.Run(Context{})
		assert.Equal(t, !block, res.Pass, "mask=%d", mask)
		assert.InDelta(t, Confidence(3), res.Confidence, 1e-9)
	}
}

func TestRegisterAppendsRule(t *testing.T) {
	e, _ := newEngine(t)
	e.Register(NewRule("custom", func(ctx Context) *Finding {
		if ctx.Tone == "harsh" {
			return &Finding{Severity: SeverityBlock, Message: "harsh tone"}
		}
		return nil
	}))

	assert.Equal(t, []string{RuleRespectConstraints, RuleAvoidPressure, RuleNoUnconsentedMemory, "custom"}, e.Rules())

	res := e.Run(Context{Tone: "harsh"})
	assert.False(t, res.Pass)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "custom", res.Findings[0].RuleID)
}

func TestPanickingRuleDoesNotFire(t *testing.T) {
	logger, logs := logging.NewObserved(zapcore.DebugLevel)
	e, _ := newEngine(t, WithLogger(logger), WithRules(
		NewRule("broken", func(ctx Context) *Finding {
			return &Finding{Severity: SeverityBlock, Message: fmt.Sprint(ctx.SuggestedAction.Cost)}
		}),
		NewRule("ok", func(Context) *Finding { return &Finding{Severity: SeverityInfo} }),
	))

	var res Result
	assert.NotPanics(t, func() { res = e.Run(Context{}) })
	assert.True(t, res.Pass)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "ok", res.Findings[0].RuleID)
	assert.Equal(t, 1, logs.FilterMessage("checkpoint: rule panicked").Len())
}

func TestRunCountsFindings(t *testing.T) {
	counter := metrics.CheckpointFindings.WithLabelValues(RuleAvoidPressure, string(SeverityWarn))
	before := testutil.ToFloat64(counter)

	e, _ := newEngine(t)
	e.Run(Context{UserSignals: UserSignals{Emotion: "anxious"}, Tone: "urgent"})

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
