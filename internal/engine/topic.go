package engine

import (
	"strings"
	"unicode"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/memory"
)

// TopicExtractor maps free text to a topic tag. Implementations are treated
// as pure functions.
type TopicExtractor interface {
	ExtractTopic(text string) string
}

// TopicFunc adapts a function to TopicExtractor.
type TopicFunc func(text string) string

func (f TopicFunc) ExtractTopic(text string) string { return f(text) }

// DefaultTopic is returned when nothing usable is found in the text.
const DefaultTopic = "general"

// DefaultTopicWords is how many significant words the slug extractor keeps.
const DefaultTopicWords = 2

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "about": true, "am": true,
	"be": true, "but": true, "can": true, "do": true, "for": true, "how": true,
	"i": true, "i'm": true, "im": true, "in": true, "is": true, "it": true,
	"me": true, "my": true, "of": true, "on": true, "or": true, "should": true,
	"so": true, "that": true, "the": true, "this": true, "to": true, "want": true,
	"was": true, "what": true, "with": true, "you": true, "feel": true, "feeling": true,
	"think": true, "thinking": true, "really": true, "just": true, "now": true,
}

// SlugTopics returns an extractor that joins the first maxWords significant
// words of the text into a normalised slug. It stands in for a real topic
// model; hosts with one should pass it through WithTopicExtractor.
func SlugTopics(maxWords int) TopicExtractor {
	if maxWords <= 0 {
		maxWords = DefaultTopicWords
	}
	return TopicFunc(func(text string) string {
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '_'
		})

		var kept []string
		for _, w := range words {
			if stopwords[w] || len(w) < 3 {
				continue
			}
			kept = append(kept, w)
			if len(kept) == maxWords {
				break
			}
		}

		topic := memory.NormalizeTopic(strings.Join(kept, "_"))
		if topic == "" {
			return DefaultTopic
		}
		return topic
	})
}
