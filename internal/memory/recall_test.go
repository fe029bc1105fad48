package memory

import (
	"strings"
	"testing"
	"time"

	"valet/internal/tokencount"
)

func TestRecallEmpty(t *testing.T) {
	s := newTestStore(t)
	a := NewAssembler(s, tokencount.Default(), 0)
	block, err := a.Build("anything")
	if err != nil {
		t.Fatal(err)
	}
	if block != "" {
		t.Fatalf("empty store rendered %q", block)
	}
}

func TestRecallBlock(t *testing.T) {
	s := newTestStore(t)
	s.InsertFact("user", "preferred_name", "Alex", "distiller", "s1", 0.9)
	s.InsertFact("user", "theme", "dark", "distiller", "s1", 0.8)
	s.AddEpisode("s0", "set up the music library")

	a := NewAssembler(s, tokencount.Default(), 0)
	block, err := a.Build("theme")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(block, "## 🧠 RETRIEVED MEMORY") {
		t.Fatalf("block = %q", block)
	}
	// The matching fact and the padded recent fact both appear.
	if !strings.Contains(block, "user theme: dark") || !strings.Contains(block, "user preferred_name: Alex") {
		t.Errorf("block = %q", block)
	}
	if !strings.Contains(block, "set up the music library") {
		t.Errorf("block missing episode: %q", block)
	}
}

func TestRecallBudget(t *testing.T) {
	s := newTestStore(t)
	long := strings.Repeat("verbose preference detail ", 40)
	for i := 0; i < 10; i++ {
		s.InsertFact("user", "preference", long, "distiller", "s1", 0.8)
	}
	a := NewAssembler(s, tokencount.Default(), 50)
	block, err := a.Build("preference")
	if err != nil {
		t.Fatal(err)
	}
	if got := tokencount.Default().Count(block); got > 50 {
		t.Errorf("recall block uses %d tokens, budget 50", got)
	}
}

func TestHousekeepingIntervalGate(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	h := NewHousekeeper(s, dir, HousekeeperOptions{
		Interval: 24 * time.Hour,
		EventTTL: time.Hour,
	})

	s.AddEvent("s1", "user_msg", "old")
	now := time.Now()

	ran, err := h.RunIfDue(now)
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("first run should fire")
	}

	// Within the interval: gated.
	ran, err = h.RunIfDue(now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Fatal("second run inside interval should be gated")
	}

	// Past the interval: fires again, and the gate state survived on disk.
	h2 := NewHousekeeper(s, dir, HousekeeperOptions{Interval: 24 * time.Hour})
	ran, err = h2.RunIfDue(now.Add(25 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("run past interval should fire")
	}
}

func TestTodoList(t *testing.T) {
	dir := t.TempDir()
	l, err := NewTodoList(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(l.Render(), "empty") {
		t.Errorf("Render() = %q", l.Render())
	}
	l.Add("buy milk")
	l.Add("water plants")
	it, err := l.Complete(1)
	if err != nil {
		t.Fatal(err)
	}
	if !it.Done {
		t.Error("Complete did not mark done")
	}
	if _, err := l.Complete(5); err == nil {
		t.Error("out-of-range index should fail")
	}

	// Reload from disk.
	l2, err := NewTodoList(dir)
	if err != nil {
		t.Fatal(err)
	}
	out := l2.Render()
	if !strings.Contains(out, "1. ✅ buy milk") || !strings.Contains(out, "2. ⬜ water plants") {
		t.Errorf("Render() = %q", out)
	}
}
