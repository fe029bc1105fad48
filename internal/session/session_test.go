package session

import (
	"strings"
	"testing"
)

func TestUpdateBrowserDerivesSite(t *testing.T) {
	s := NewState(0)
	s.UpdateBrowser("https://github.com/owner/repo/issues", "Issues")
	if got := s.LastSite(); got != "github.com" {
		t.Errorf("LastSite = %q, want github.com", got)
	}
	if got := s.LastURL(); got != "https://github.com/owner/repo/issues" {
		t.Errorf("LastURL = %q", got)
	}

	// A URL without a parseable host keeps the previous site.
	s.UpdateBrowser("not a url", "")
	if got := s.LastSite(); got != "github.com" {
		t.Errorf("LastSite after bad URL = %q, want github.com", got)
	}
}

func TestResolveTaskWithReferent(t *testing.T) {
	s := NewState(0)
	s.UpdateBrowser("https://github.com", "")

	got := s.ResolveTask("open an issue there")
	if !strings.Contains(got, "open an issue there") {
		t.Errorf("resolved task should keep original text: %q", got)
	}
	if !strings.Contains(got, "github.com") {
		t.Errorf("resolved task should name the referent: %q", got)
	}
	if !strings.Contains(got, "(Assume") {
		t.Errorf("resolved task should carry an explicit assumption: %q", got)
	}

	hint := s.ReferenceHint("open an issue there")
	if !strings.Contains(hint, "github.com") {
		t.Errorf("reference hint should name github.com: %q", hint)
	}
}

func TestResolveTaskWithoutReferent(t *testing.T) {
	s := NewState(0)
	in := "open an issue there"
	if got := s.ResolveTask(in); got != in {
		t.Errorf("no tracked referent: task must be unchanged, got %q", got)
	}
	if got := s.ReferenceHint(in); got != "" {
		t.Errorf("no tracked referent: hint must be empty, got %q", got)
	}
}

func TestResolveTaskUnambiguous(t *testing.T) {
	s := NewState(0)
	s.UpdateBrowser("https://github.com", "")
	in := "open the calculator app"
	if got := s.ResolveTask(in); got != in {
		t.Errorf("unambiguous task must be unchanged, got %q", got)
	}
}

func TestUIReferenceHint(t *testing.T) {
	s := NewState(0)
	s.UpdateApp("Apple Music")
	s.UpdateTask("play Breakup Party")

	hint := s.UIReferenceHint("click the song in the top section")
	if !strings.Contains(hint, "Apple Music") {
		t.Errorf("hint should include active app: %q", hint)
	}
	if !strings.Contains(hint, `"Breakup Party"`) {
		t.Errorf("hint should surface the literal play target: %q", hint)
	}
}

func TestInterruptFlag(t *testing.T) {
	s := NewState(0)
	if s.InterruptRequested() {
		t.Fatal("fresh state should not be interrupted")
	}
	s.RequestInterrupt()
	if !s.InterruptRequested() {
		t.Fatal("interrupt flag should be visible after RequestInterrupt")
	}
	s.ClearInterrupt()
	if s.InterruptRequested() {
		t.Fatal("interrupt flag should clear")
	}
}

func TestUsageString(t *testing.T) {
	s := NewState(1000)
	s.UpdateTokens(300, 200)
	if got := s.UsageString(); got != "ctx 500/1000 left 500" {
		t.Errorf("UsageString = %q", got)
	}
	s.UpdateTokens(600, 0)
	if got := s.UsageString(); got != "ctx 1100/1000 left 0" {
		t.Errorf("UsageString (over budget) = %q", got)
	}
}

func TestModeTransitions(t *testing.T) {
	s := NewState(0)
	if s.Mode() != ModeDefault {
		t.Fatalf("initial mode = %q", s.Mode())
	}
	s.SetMode(ModeCoding)
	if s.Mode() != ModeCoding {
		t.Fatalf("mode = %q, want coding", s.Mode())
	}
	s.SetMode(Mode("bogus"))
	if s.Mode() != ModeCoding {
		t.Fatalf("unknown mode must be ignored, got %q", s.Mode())
	}
}
