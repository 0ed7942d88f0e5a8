package memory

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeTopic(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"career", "career"},
		{"Career_Change", "career_change"},
		{"career change", "career-change"},
		{"career.change", "career-change"},
		{"career/change", "career-change"},
		{"  spaces  ", "spaces"},
		{"---leading", "leading"},
		{"trailing___", "trailing"},
		{"café", "caf"},
		{"what now?", "what-now"},
		{"", ""},
		{"   ", ""},
		{"!!!!", ""},
		{"../../etc/passwd", "etc-passwd"},
	}

	for _, tt := range tests {
		got := NormalizeTopic(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSameTopic(t *testing.T) {
	if !sameTopic("Career_Change", "career_change") {
		t.Error("expected case-insensitive match")
	}
	if !sameTopic(" career ", "CAREER") {
		t.Error("expected surrounding space to be ignored")
	}
	if sameTopic("career", "career_change") {
		t.Error("prefix must not match")
	}
}

func TestTruncateClean(t *testing.T) {
	short := "hello world"
	if got := truncateClean(short, 100); got != short {
		t.Errorf("short string changed: %q", got)
	}

	long := strings.Repeat("abcd ", 100)
	got := truncateClean(long, 52)
	if len(got) > 52 {
		t.Errorf("len = %d, want <= 52", len(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Error("result should be trimmed")
	}
	if !strings.HasSuffix(got, "abcd") {
		t.Errorf("cut mid-word: %q", got)
	}
}

func TestTruncateCleanKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"cut inside second rune", "ab日本語", 6, "ab日"},
		{"cut on boundary", "ab日本語", 5, "ab日"},
		{"cut inside first rune", "日本", 2, ""},
		{"no whitespace tail", "x" + strings.Repeat("日", 2000), 4000, "x" + strings.Repeat("日", 1333)},
	}

	for _, tt := range tests {
		got := truncateClean(tt.input, tt.maxLen)
		if !utf8.ValidString(got) {
			t.Errorf("%s: invalid UTF-8 %q", tt.name, got)
		}
		if len(got) > tt.maxLen {
			t.Errorf("%s: len = %d, want <= %d", tt.name, len(got), tt.maxLen)
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
