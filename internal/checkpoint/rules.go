package checkpoint

import "strings"

// Rule IDs of the built-in rules.
const (
	RuleRespectConstraints  = "respect_constraints"
	RuleAvoidPressure       = "avoid_pressure"
	RuleNoUnconsentedMemory = "no_unconsented_memory"
)

// FinancialConstraintThreshold is the constraint level at which any suggested
// cost is flagged.
const FinancialConstraintThreshold = 0.6

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		NewRule(RuleRespectConstraints, respectConstraints),
		NewRule(RuleAvoidPressure, avoidPressure),
		NewRule(RuleNoUnconsentedMemory, noUnconsentedMemory),
	}
}

func respectConstraints(ctx Context) *Finding {
	financial, ok := ctx.UserSignals.Constraints["financial"]
	if !ok || ctx.SuggestedAction == nil {
		return nil
	}
	if financial < FinancialConstraintThreshold || ctx.SuggestedAction.Cost <= 0 {
		return nil
	}
	return &Finding{
		Severity: SeverityWarn,
		Message:  "suggestion ignores user's financial constraint",
		Signals: map[string]any{
			"financial": financial,
			"cost":      ctx.SuggestedAction.Cost,
		},
	}
}

func avoidPressure(ctx Context) *Finding {
	if !strings.EqualFold(ctx.UserSignals.Emotion, "anxious") || !strings.EqualFold(ctx.Tone, "urgent") {
		return nil
	}
	return &Finding{
		Severity: SeverityWarn,
		Message:  "urgent tone may increase distress for an anxious user",
		Signals: map[string]any{
			"emotion": ctx.UserSignals.Emotion,
			"tone":    ctx.Tone,
		},
	}
}

// noUnconsentedMemory blocks PII writes unless the caller routes them through
// the consent gate.
func noUnconsentedMemory(ctx Context) *Finding {
	if !ctx.AboutToStorePII || ctx.ConsentGated {
		return nil
	}
	return &Finding{
		Severity: SeverityBlock,
		Message:  "attempt to store PII without consent",
		Signals:  map[string]any{"about_to_store_pii": true},
	}
}
