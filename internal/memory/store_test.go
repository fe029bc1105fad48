package memory

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertFactHistory(t *testing.T) {
	s := newTestStore(t)

	id1, err := s.UpsertFact("user", "theme", "dark", "distiller", "s1", 0.8)
	if err != nil {
		t.Fatal(err)
	}

	// Same value again: no history entry.
	id2, err := s.UpsertFact("user", "theme", "dark", "distiller", "s1", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("upsert created a new row: %d vs %d", id1, id2)
	}
	f, err := s.FactByID(id1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.Metadata["history"]; ok {
		t.Fatal("unchanged object must not append history")
	}
	if f.Confidence != 0.9 {
		t.Errorf("confidence = %v, want refreshed 0.9", f.Confidence)
	}

	// Changed value: exactly one history entry holding the prior object.
	if _, err := s.UpsertFact("user", "theme", "light", "distiller", "s2", 0.8); err != nil {
		t.Fatal(err)
	}
	f, err = s.FactByID(id1)
	if err != nil {
		t.Fatal(err)
	}
	if f.Object != "light" {
		t.Errorf("object = %q", f.Object)
	}
	history, ok := f.Metadata["history"].([]any)
	if !ok || len(history) != 1 {
		t.Fatalf("history = %#v, want one entry", f.Metadata["history"])
	}
	entry, _ := history[0].(map[string]any)
	if entry["object"] != "dark" {
		t.Errorf("history entry = %#v", entry)
	}
}

func TestSoftDeleteHidesFromSearch(t *testing.T) {
	s := newTestStore(t)
	id, err := s.InsertFact("user", "preference", "vim keybindings", "manual", "s1", 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MarkDeleted(id); err != nil {
		t.Fatal(err)
	}
	facts, err := s.SearchFacts("vim", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 0 {
		t.Fatalf("soft-deleted fact surfaced in search: %+v", facts)
	}
	// Still retrievable by ID.
	f, err := s.FactByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if !f.Deleted {
		t.Error("FactByID lost the deleted flag")
	}
}

func TestLockedFactSurvivesPurge(t *testing.T) {
	s := newTestStore(t)
	locked, err := s.InsertFact("user", "name", "Sam", "manual", "s1", 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MarkLocked(locked, true); err != nil {
		t.Fatal(err)
	}
	unlocked, err := s.InsertFact("user", "preference", "tea over coffee", "distiller", "s1", 0.8)
	if err != nil {
		t.Fatal(err)
	}

	// Cutoff in the future: everything unlocked is stale.
	n, err := s.PurgeFactsOlderThan(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d facts, want 1", n)
	}
	f, _ := s.FactByID(locked)
	if f.Deleted {
		t.Error("locked fact was purged")
	}
	f, _ = s.FactByID(unlocked)
	if !f.Deleted {
		t.Error("unlocked stale fact survived purge")
	}
}

func TestEventsAndEpisodes(t *testing.T) {
	s := newTestStore(t)
	if err := s.AddEvent("s1", "user_msg", "open chrome"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEvent("s1", "agent_result", "done"); err != nil {
		t.Fatal(err)
	}
	events, err := s.SessionEvents("s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[0].Kind != "user_msg" {
		t.Fatalf("events = %+v", events)
	}

	if err := s.AddEpisode("s1", "helped set up the browser bridge"); err != nil {
		t.Fatal(err)
	}
	eps, err := s.RecentEpisodes(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 || eps[0].Summary == "" {
		t.Fatalf("episodes = %+v", eps)
	}

	st, err := s.CountStats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Events != 2 || st.Episodes != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.InsertFact("user", "timezone", "Europe/Berlin", "manual", "s1", 1.0)
	s.MarkLocked(id, true)

	data, err := s.ExportFacts()
	if err != nil {
		t.Fatal(err)
	}

	s2 := newTestStore(t)
	n, err := s2.ImportFacts(data)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}
	facts, _ := s2.SearchFacts("Berlin", 10)
	if len(facts) != 1 || !facts[0].Locked {
		t.Fatalf("imported facts = %+v", facts)
	}

	// Import is additive: importing again duplicates rather than overwrites.
	if _, err := s2.ImportFacts(data); err != nil {
		t.Fatal(err)
	}
	facts, _ = s2.SearchFacts("Berlin", 10)
	if len(facts) != 2 {
		t.Fatalf("second import should add a row, got %d", len(facts))
	}
}

func TestCleanupExpiredFacts(t *testing.T) {
	s := newTestStore(t)
	stale, _ := s.InsertFact("user", "wifi_code", "cafe-4421", "manual", "s1", 0.9)
	pinned, _ := s.InsertFact("user", "passport_locker", "drawer 3", "manual", "s1", 0.9)
	fresh, _ := s.InsertFact("user", "timezone", "Europe/Berlin", "manual", "s1", 1.0)

	past := time.Now().Add(-time.Hour)
	if err := s.SetFactExpiry(stale, past); err != nil {
		t.Fatal(err)
	}
	if err := s.SetFactExpiry(pinned, past); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkLocked(pinned, true); err != nil {
		t.Fatal(err)
	}

	n, err := s.CleanupExpiredFacts(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("cleaned %d, want 1", n)
	}

	if facts, _ := s.SearchFacts("cafe-4421", 5); len(facts) != 0 {
		t.Errorf("expired fact still visible: %+v", facts)
	}
	// A locked fact survives expiry cleanup regardless of expires_at.
	if facts, _ := s.SearchFacts("drawer 3", 5); len(facts) != 1 {
		t.Errorf("locked fact was expired: %+v", facts)
	}
	if facts, _ := s.SearchFacts("Berlin", 5); len(facts) != 1 {
		t.Errorf("unexpired fact touched: %+v", facts)
	}

	// Clearing the expiry makes the next sweep a no-op.
	if err := s.SetFactExpiry(fresh, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CleanupExpiredFacts(time.Now()); n != 0 {
		t.Errorf("second sweep cleaned %d, want 0", n)
	}
}
