// Package redact removes secrets from text before it is remembered and reports
// personally identifying information so callers can gate the write on consent.
package redact

import (
	"sort"
)

// DefaultReplacement is written in place of a removed secret.
const DefaultReplacement = "[REDACTED]"

// Span locates a match in the original, unscrubbed text.
type Span struct {
	Rule  string `json:"rule"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Result is the outcome of Scrub.
type Result struct {
	// Text is the input with every secret replaced.
	Text string
	// Removed lists the secret spans, in order of appearance.
	Removed []Span
	// PII lists personally identifying spans left in Text.
	PII []Span
}

// HasPII reports whether any PII was detected.
func (r Result) HasPII() bool { return len(r.PII) > 0 }

// Scrubber applies a rule set.
type Scrubber struct {
	rules       []Rule
	replacement string
}

// New returns a Scrubber over rules, or DefaultRules when rules is empty.
func New(rules ...Rule) *Scrubber {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Scrubber{rules: rules, replacement: DefaultReplacement}
}

// Scrub replaces secrets and reports PII. A nil *Scrubber returns text unchanged.
func (s *Scrubber) Scrub(text string) Result {
	res := Result{Text: text}
	if s == nil || text == "" {
		return res
	}

	var secrets []Span
	for _, rule := range s.rules {
		for _, m := range rule.Pattern.FindAllStringIndex(text, -1) {
			span := Span{Rule: rule.ID, Start: m[0], End: m[1]}
			if rule.Class == ClassSecret {
				secrets = append(secrets, span)
			} else {
				res.PII = append(res.PII, span)
			}
		}
	}
	if len(secrets) == 0 {
		sortSpans(res.PII)
		return res
	}

	sortSpans(secrets)
	res.Removed = merge(secrets)
	res.PII = outside(res.PII, res.Removed)

	// Replace back to front so earlier offsets stay valid.
	out := text
	for i := len(res.Removed) - 1; i >= 0; i-- {
		sp := res.Removed[i]
		out = out[:sp.Start] + s.replacement + out[sp.End:]
	}
	res.Text = out
	return res
}

// Detect reports PII without modifying text.
func (s *Scrubber) Detect(text string) []Span {
	return s.Scrub(text).PII
}

func sortSpans(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
}

// merge collapses overlapping spans; the first rule to start a span names it.
func merge(spans []Span) []Span {
	merged := []Span{spans[0]}
	for _, cur := range spans[1:] {
		last := &merged[len(merged)-1]
		if cur.Start < last.End {
			if cur.End > last.End {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// outside drops PII spans that overlap a removed secret.
func outside(pii, removed []Span) []Span {
	var out []Span
	for _, p := range pii {
		hit := false
		for _, r := range removed {
			if p.Start < r.End && r.Start < p.End {
				hit = true
				break
			}
		}
		if !hit {
			out = append(out, p)
		}
	}
	sortSpans(out)
	return out
}
