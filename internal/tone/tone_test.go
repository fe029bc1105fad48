package tone

import (
	"strings"
	"testing"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"urgency keyword", "fix the wifi asap", "URGENT"},
		{"short all caps", "DO IT NOW!", "URGENT"},
		{"frustration", "this doesn't work again", "FRUSTRATED"},
		{"greeting", "hey, how are you", "CASUAL"},
		{"polite long", "could you please walk me through setting up the browser bridge on my machine", "DETAILED"},
		{"quick question", "what song is this?", "QUICK_QUESTION"},
		{"terse", "volume 30", "TERSE"},
		{"neutral", "open the calendar and check my schedule for tomorrow", "PROFESSIONAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.message)
			if got.Tone != tc.want {
				t.Errorf("Detect(%q).Tone = %q, want %q", tc.message, got.Tone, tc.want)
			}
			if got.Directive == "" {
				t.Errorf("Detect(%q) returned empty directive", tc.message)
			}
		})
	}
}

func TestDetectEmpty(t *testing.T) {
	got := Detect("")
	if got.Tone != "" || got.Directive != "" {
		t.Errorf("Detect(\"\") = %+v, want zero value", got)
	}
	if got.PromptBlock() != "" {
		t.Error("zero directive should render an empty prompt block")
	}
}

func TestPromptBlock(t *testing.T) {
	block := Detect("fix this urgent").PromptBlock()
	if !strings.HasPrefix(block, "## 🎭 TONE DIRECTIVE") {
		t.Errorf("PromptBlock = %q", block)
	}
}
