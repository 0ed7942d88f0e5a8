package redact

import "regexp"

// Class separates content that is always removed from content that is only reported.
type Class string

const (
	// ClassSecret matches are replaced before content is stored.
	ClassSecret Class = "secret"
	// ClassPII matches are reported; storing them is a consent decision.
	ClassPII Class = "pii"
)

// Rule is one detection pattern.
type Rule struct {
	ID      string
	Class   Class
	Pattern *regexp.Regexp
}

// DefaultRules returns the built-in secret and PII patterns.
func DefaultRules() []Rule {
	return []Rule{
		// Secrets
		{
			ID:      "generic-api-key",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,64}['"]?`),
		},
		{
			ID:      "generic-secret",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`(?i)(?:secret|password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{8,}['"]?`),
		},
		{
			ID:      "bearer-token",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]{16,}=*`),
		},
		{
			ID:      "github-token",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
		},
		{
			ID:      "openai-key",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`),
		},
		{
			ID:      "private-key",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`-----BEGIN (?:RSA |DSA |EC |OPENSSH |PGP )?PRIVATE KEY(?:[- ]BLOCK)?-----`),
		},
		{
			ID:      "card-number",
			Class:   ClassSecret,
			Pattern: regexp.MustCompile(`\b(?:\d[ -]?){12,15}\d\b`),
		},

		// PII
		{
			ID:      "email",
			Class:   ClassPII,
			Pattern: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
		},
		{
			ID:      "ssn",
			Class:   ClassPII,
			Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
		},
		{
			ID:      "phone",
			Class:   ClassPII,
			Pattern: regexp.MustCompile(`(?:\+\d{1,2}[ .\-]?)?\(?\b\d{3}\)?[ .\-]\d{3}[ .\-]\d{4}\b`),
		},
	}
}
