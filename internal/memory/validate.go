package memory

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxContentBytes bounds stored content, measured in UTF-8 bytes. Longer
// content is truncated at a word boundary rather than rejected.
const MaxContentBytes = 4000

// validTopicChar reports whether r may appear in a normalised topic.
// Allowed: lowercase alphanumeric, hyphens, underscores.
func validTopicChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_'
}

// NormalizeTopic folds a free-form label to [a-z0-9_-].
// Uppercase becomes lowercase, spaces/dots/slashes collapse to one hyphen, and
// anything else is dropped. Returns "" if nothing survives.
func NormalizeTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}

	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(topic) {
		if validTopicChar(r) {
			b.WriteRune(r)
			prevHyphen = r == '-'
		} else if r == ' ' || r == '.' || r == '/' {
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}

	return strings.Trim(b.String(), "-_")
}

// sameTopic is the query match: trimmed, case-insensitive, otherwise exact.
func sameTopic(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// truncateClean truncates s to at most maxLen bytes, cutting at the last
// word boundary to avoid mid-word breaks. The cut never splits a rune.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	truncated := s[:maxLen]
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
