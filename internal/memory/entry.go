// Package memory is the topic-indexed memory store. Every entry carries an
// explicit Kind; only Fleeting entries are subject to decay.
package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/redact"
)

// Kind is the retention class of an entry.
type Kind string

const (
	// Fleeting is ephemeral working memory, removed by decay.
	Fleeting Kind = "Fleeting"
	// AdaptiveAnchor is a durable, reinforced lesson or stance.
	AdaptiveAnchor Kind = "AdaptiveAnchor"
	// Legacy is a long-horizon identity fact.
	Legacy Kind = "Legacy"
	// Meta is a long-horizon fact about the memory itself.
	Meta Kind = "Meta"
)

var kinds = []Kind{Fleeting, AdaptiveAnchor, Legacy, Meta}

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown memory kind %q", s)
}

// Decays reports whether entries of this kind are removed by decay.
func (k Kind) Decays() bool { return k == Fleeting }

// Redaction is a span removed from content before it was stored. Offsets
// refer to the content as submitted.
type Redaction = redact.Span

// Duration is a time.Duration stored as its string form.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Entry is a stored memory.
//
// Required: Topic, Content. Everything else is filled by NewEntry.
type Entry struct {
	ID         string         `json:"id"`
	Topic      string         `json:"topic"`
	Kind       Kind           `json:"kind"`
	Content    string         `json:"content"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	TTL        *Duration      `json:"ttl,omitempty"`
	Weight     float64        `json:"weight"`
	Context    map[string]any `json:"context,omitempty"`
	Source     string         `json:"source,omitempty"`
	Redactions []Redaction    `json:"redactions,omitempty"`
}

// Age returns how long ago the entry was created.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Input describes a memory to upsert. Zero values take defaults:
// Kind Fleeting, Weight 1.0, Source "acf".
type Input struct {
	Topic      string
	Kind       Kind
	Content    string
	TTL        time.Duration
	Weight     *float64
	Context    map[string]any
	Source     string
	Redactions []Redaction
}

// DefaultWeight is the salience of an entry that did not specify one.
const DefaultWeight = 1.0

// NewEntry builds an Entry from in, filling defaults.
func NewEntry(in Input, id string, now time.Time) Entry {
	e := Entry{
		ID:         id,
		Topic:      strings.TrimSpace(in.Topic),
		Kind:       in.Kind,
		Content:    in.Content,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
		Weight:     DefaultWeight,
		Context:    in.Context,
		Source:     in.Source,
		Redactions: in.Redactions,
	}
	if e.Kind == "" {
		e.Kind = Fleeting
	}
	if in.Weight != nil {
		e.Weight = *in.Weight
	}
	if in.TTL > 0 {
		ttl := Duration(in.TTL)
		e.TTL = &ttl
	}
	if e.Source == "" {
		e.Source = "acf"
	}
	return e
}
