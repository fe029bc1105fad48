package goals

import (
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCreateAndPersist(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	g, err := m.Create("ship the release", []string{"tag", "build", "announce"})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.ID) != 8 {
		t.Errorf("ID = %q, want 8 chars", g.ID)
	}
	if g.Status != StatusActive {
		t.Errorf("Status = %q", g.Status)
	}

	// Reload from disk.
	m2, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := m2.Get(g.ID)
	if !ok {
		t.Fatal("goal not persisted")
	}
	if got.Description != "ship the release" || len(got.Steps) != 3 {
		t.Errorf("reloaded goal = %+v", got)
	}
}

func TestAdvanceCompletesInOrder(t *testing.T) {
	m := newTestManager(t)
	g, _ := m.Create("two steps", []string{"first", "second"})

	msg, err := m.Advance(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "first") || !strings.Contains(msg, "(1/2)") {
		t.Errorf("msg = %q", msg)
	}
	if g.Status != StatusActive {
		t.Errorf("status flipped early: %q", g.Status)
	}

	msg, err = m.Advance(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "Goal complete") {
		t.Errorf("final advance msg = %q", msg)
	}
	if g.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", g.Status)
	}

	// Advancing a completed goal mutates nothing.
	steps := len(g.CompletedSteps)
	msg, err = m.Advance(g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(msg, "fully complete") {
		t.Errorf("msg = %q", msg)
	}
	if len(g.CompletedSteps) != steps || g.Status != StatusCompleted {
		t.Error("completed goal was mutated")
	}
}

func TestAdvanceUnknown(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Advance("nope1234"); err == nil {
		t.Fatal("want error for unknown goal")
	}
}

func TestPromptBlock(t *testing.T) {
	m := newTestManager(t)
	if m.PromptBlock() != "" {
		t.Fatal("empty manager should render no block")
	}
	g, _ := m.Create("demo", []string{"a", "b"})
	m.Advance(g.ID)
	block := m.PromptBlock()
	if !strings.HasPrefix(block, "## 🎯 ACTIVE GOALS") {
		t.Errorf("block = %q", block)
	}
	if !strings.Contains(block, "✅ a") || !strings.Contains(block, "⬜ b  ← NEXT") {
		t.Errorf("block = %q", block)
	}
	if !strings.Contains(block, "(1/2)") {
		t.Errorf("block = %q", block)
	}

	m.Complete(g.ID)
	if m.PromptBlock() != "" {
		t.Error("completed goals must not render")
	}
}
