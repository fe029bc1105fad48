package verify

import (
	"errors"
	"strings"
	"testing"

	"valet/internal/session"
)

func TestNonSuccessAnswerPassesThrough(t *testing.T) {
	answer := "I could not find that file."
	got := AdjustFinalAnswer(answer, nil, "post a comment", nil)
	if got != answer {
		t.Errorf("non-success answer changed: %q", got)
	}
}

func TestErrorInTraceOverridesSuccess(t *testing.T) {
	trace := []Step{
		{Tools: []string{"chrome_navigate"}, Observation: "navigated"},
		{Tools: []string{"chrome_click"}, Err: errors.New("element not found")},
	}
	got := AdjustFinalAnswer("Done! Successfully posted.", trace, "post a comment on the thread", nil)
	if !strings.Contains(got, "error occurred") {
		t.Errorf("error not surfaced: %q", got)
	}

	// Observation-level failure markers count too.
	trace = []Step{{Tools: []string{"chrome_click"}, Observation: "❌ Browser Error: timeout"}}
	got = AdjustFinalAnswer("Done!", trace, "post a comment", nil)
	if !strings.Contains(got, "error occurred") {
		t.Errorf("observation marker ignored: %q", got)
	}
}

func TestStrictTaskRequiresStrictVerification(t *testing.T) {
	// Clean trace, but no verification call: downgrade.
	trace := []Step{{Tools: []string{"chrome_navigate", "chrome_click", "chrome_type"}, Observation: "typed the comment"}}
	got := AdjustFinalAnswer("Successfully posted!", trace, "post a comment on the issue", nil)
	if !strings.Contains(got, "couldn't verify") {
		t.Errorf("unverified strict success not downgraded: %q", got)
	}

	// Same trace with a strict verification call: claim stands.
	trace = append(trace, Step{Tools: []string{"chrome_verify_text"}, Observation: "found: my comment text"})
	answer := "Successfully posted!"
	if got := AdjustFinalAnswer(answer, trace, "post a comment on the issue", nil); got != answer {
		t.Errorf("verified success downgraded: %q", got)
	}
}

func TestPlainTaskUnchanged(t *testing.T) {
	trace := []Step{{Tools: []string{"open_app"}, Observation: "launched Calculator"}}
	answer := "Opened the calculator."
	if got := AdjustFinalAnswer(answer, trace, "open the calculator app", nil); got != answer {
		t.Errorf("plain task downgraded: %q", got)
	}
}

func TestBrowserTaskRequiresAnyVerification(t *testing.T) {
	trace := []Step{{Tools: []string{"chrome_navigate", "chrome_scroll"}, Observation: "scrolled"}}
	got := AdjustFinalAnswer("Done, the page is open.", trace, "scroll down on the chrome tab", nil)
	if !strings.Contains(got, "verify the page state") {
		t.Errorf("browser task without evidence not downgraded: %q", got)
	}

	trace = append(trace, Step{Tools: []string{"chrome_get_text"}, Observation: "page body text"})
	answer := "Done, the page is open."
	if got := AdjustFinalAnswer(answer, trace, "scroll down on the chrome tab", nil); got != answer {
		t.Errorf("verified browser task downgraded: %q", got)
	}
}

func TestUIReferenceWithActiveAppIsStrict(t *testing.T) {
	sess := session.NewState(128000)
	sess.UpdateApp("Apple Music")
	trace := []Step{{Tools: []string{"click_at"}, Observation: "clicked"}}
	got := AdjustFinalAnswer("Done, playing it now.", trace, "click the song in the top section", sess)
	if !strings.Contains(got, "couldn't verify") {
		t.Errorf("UI-reference task not treated as strict: %q", got)
	}
}

func TestDowngradeNamesWhereToCheck(t *testing.T) {
	sess := session.NewState(128000)
	sess.UpdateBrowser("https://github.com/org/repo/issues/1", "issue page")
	trace := []Step{{Tools: []string{"chrome_type"}, Observation: "typed"}}
	got := AdjustFinalAnswer("Sent!", trace, "send the reply message", sess)
	if !strings.Contains(got, "github.com") {
		t.Errorf("downgrade does not name the site: %q", got)
	}
}

func TestBuildEvidenceLastEight(t *testing.T) {
	var trace []Step
	for i := 0; i < 5; i++ {
		trace = append(trace, Step{Observation: "line a\nline b"})
	}
	ev := BuildEvidence(trace)
	if got := strings.Count(ev, "line"); got != 8 {
		t.Errorf("evidence has %d lines, want 8: %q", got, ev)
	}
	if BuildEvidence(nil) != "" {
		t.Error("empty trace should produce no evidence block")
	}
}
