// Package memory 实现长期记忆层：事实、事件与情景摘要的 SQLite 持久化，
// 以及从对话中蒸馏事实、按预算召回的组装逻辑。
// Package memory implements the long-term memory layer: SQLite persistence
// for facts, events and episode summaries, plus distillation of facts from
// conversation and budget-bounded recall assembly.
package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// historyLimit 限制 metadata 中保留的历史取值条数。
// historyLimit bounds how many prior values are kept in fact metadata.
const historyLimit = 10

// Fact 一条主语-谓语-宾语事实。
// Fact is a single subject-predicate-object statement.
type Fact struct {
	ID         int64
	Subject    string
	Predicate  string
	Object     string
	Confidence float64
	Source     string
	SessionID  string
	Locked     bool
	Deleted    bool
	Metadata   map[string]any
	ExpiresAt  time.Time // zero means the fact never expires
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Event 会话期间发生的一条原始事件。
// Event is one raw occurrence during a session.
type Event struct {
	ID        int64
	SessionID string
	Kind      string
	Content   string
	CreatedAt time.Time
}

// Episode 一段会话的压缩摘要。
// Episode is a compressed summary of a session span.
type Episode struct {
	ID        int64
	SessionID string
	Summary   string
	CreatedAt time.Time
}

// Stats 各表的存量计数。
// Stats counts live rows per table.
type Stats struct {
	Facts    int
	Events   int
	Episodes int
}

// Store 基于 SQLite (WAL 模式) 的记忆库。单写者：全部操作经 mu 串行化。
// Store is the SQLite-backed (WAL mode) memory database. Single writer: every
// operation is serialized through mu.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open 创建并初始化记忆数据库。
// Open creates and initializes the memory database.
func Open(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("memory db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS facts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		subject    TEXT NOT NULL,
		predicate  TEXT NOT NULL,
		object     TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0.8,
		source     TEXT NOT NULL DEFAULT '',
		session_id TEXT NOT NULL DEFAULT '',
		locked     INTEGER NOT NULL DEFAULT 0,
		deleted    INTEGER NOT NULL DEFAULT 0,
		metadata   TEXT NOT NULL DEFAULT '{}',
		expires_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS episodes (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		summary    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_facts_sp ON facts(subject, predicate);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	CREATE INDEX IF NOT EXISTS idx_episodes_session ON episodes(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库连接 / Close the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339, v)
	return t
}

// UpsertFact 按 (subject, predicate) 更新或插入事实。取值变化时在 metadata 的
// history 里追加一条旧值记录；取值未变只刷新时间戳与置信度。
// UpsertFact updates or inserts a fact keyed by (subject, predicate). When the
// object changed, the prior value is appended to the history list in metadata;
// when unchanged, only timestamp and confidence are refreshed.
func (s *Store) UpsertFact(subject, predicate, object, source, sessionID string, confidence float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT id, object, metadata FROM facts
		 WHERE subject = ? AND predicate = ? AND deleted = 0
		 ORDER BY updated_at DESC LIMIT 1`,
		subject, predicate,
	)
	var id int64
	var prevObject, metaRaw string
	err := row.Scan(&id, &prevObject, &metaRaw)
	switch {
	case err == sql.ErrNoRows:
		return s.insertFactLocked(subject, predicate, object, source, sessionID, confidence)
	case err != nil:
		return 0, fmt.Errorf("lookup fact: %w", err)
	}

	meta := map[string]any{}
	_ = json.Unmarshal([]byte(metaRaw), &meta)
	if prevObject != object {
		history, _ := meta["history"].([]any)
		history = append(history, map[string]any{
			"object":     prevObject,
			"changed_at": nowRFC3339(),
		})
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
		meta["history"] = history
	}
	metaOut, err := json.Marshal(meta)
	if err != nil {
		return 0, fmt.Errorf("encode metadata: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE facts SET object = ?, confidence = ?, source = ?, session_id = ?,
		 metadata = ?, updated_at = ? WHERE id = ?`,
		object, confidence, source, sessionID, string(metaOut), nowRFC3339(), id,
	)
	if err != nil {
		return 0, fmt.Errorf("update fact: %w", err)
	}
	return id, nil
}

// InsertFact 无条件插入一条新事实，不做去重。
// InsertFact inserts a new fact unconditionally, without dedup.
func (s *Store) InsertFact(subject, predicate, object, source, sessionID string, confidence float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertFactLocked(subject, predicate, object, source, sessionID, confidence)
}

func (s *Store) insertFactLocked(subject, predicate, object, source, sessionID string, confidence float64) (int64, error) {
	now := nowRFC3339()
	res, err := s.db.Exec(
		`INSERT INTO facts (subject, predicate, object, confidence, source, session_id, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, '{}', ?, ?)`,
		subject, predicate, object, confidence, source, sessionID, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fact: %w", err)
	}
	return res.LastInsertId()
}

func scanFacts(rows *sql.Rows) ([]Fact, error) {
	defer rows.Close()
	var out []Fact
	for rows.Next() {
		var f Fact
		var locked, deleted int
		var metaRaw, expires, created, updated string
		if err := rows.Scan(&f.ID, &f.Subject, &f.Predicate, &f.Object, &f.Confidence,
			&f.Source, &f.SessionID, &locked, &deleted, &metaRaw, &expires, &created, &updated); err != nil {
			return nil, err
		}
		f.Locked = locked != 0
		f.Deleted = deleted != 0
		f.Metadata = map[string]any{}
		_ = json.Unmarshal([]byte(metaRaw), &f.Metadata)
		if expires != "" {
			f.ExpiresAt = parseTime(expires)
		}
		f.CreatedAt = parseTime(created)
		f.UpdatedAt = parseTime(updated)
		out = append(out, f)
	}
	return out, rows.Err()
}

const factColumns = `id, subject, predicate, object, confidence, source, session_id, locked, deleted, metadata, expires_at, created_at, updated_at`

// SearchFacts 对 subject/predicate/object 做子串匹配，最近更新在前。
// SearchFacts substring-matches subject/predicate/object, most recently
// updated first.
func (s *Store) SearchFacts(query string, limit int) ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := s.db.Query(
		`SELECT `+factColumns+` FROM facts
		 WHERE deleted = 0 AND (subject LIKE ? OR predicate LIKE ? OR object LIKE ?)
		 ORDER BY updated_at DESC LIMIT ?`,
		like, like, like, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search facts: %w", err)
	}
	return scanFacts(rows)
}

// RecentFacts 返回最近更新的事实。
// RecentFacts returns the most recently updated facts.
func (s *Store) RecentFacts(limit int) ([]Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+factColumns+` FROM facts WHERE deleted = 0
		 ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent facts: %w", err)
	}
	return scanFacts(rows)
}

// FactByID 按 ID 取事实，含软删除的行。
// FactByID fetches a fact by ID, including soft-deleted rows.
func (s *Store) FactByID(id int64) (Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT `+factColumns+` FROM facts WHERE id = ?`, id)
	if err != nil {
		return Fact{}, fmt.Errorf("fact by id: %w", err)
	}
	facts, err := scanFacts(rows)
	if err != nil {
		return Fact{}, err
	}
	if len(facts) == 0 {
		return Fact{}, fmt.Errorf("fact %d not found", id)
	}
	return facts[0], nil
}

// MarkDeleted 软删除：行保留但从检索与召回中消失。
// MarkDeleted soft-deletes: the row stays but disappears from search and
// recall.
func (s *Store) MarkDeleted(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE facts SET deleted = 1, updated_at = ? WHERE id = ?`, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("delete fact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fact %d not found", id)
	}
	return nil
}

// MarkLocked 锁定事实使其免于任何清理。
// MarkLocked pins a fact so no purge can remove it.
func (s *Store) MarkLocked(id int64, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0
	if locked {
		v = 1
	}
	res, err := s.db.Exec(`UPDATE facts SET locked = ?, updated_at = ? WHERE id = ?`, v, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("lock fact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fact %d not found", id)
	}
	return nil
}

// SetFactExpiry 给事实设置过期时间；零值清除过期时间。
// SetFactExpiry sets a fact's expiry; the zero time clears it.
func (s *Store) SetFactExpiry(id int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := ""
	if !expiresAt.IsZero() {
		v = expiresAt.UTC().Format(time.RFC3339)
	}
	res, err := s.db.Exec(`UPDATE facts SET expires_at = ?, updated_at = ? WHERE id = ?`, v, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("set fact expiry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("fact %d not found", id)
	}
	return nil
}

// CleanupExpiredFacts 软删除 expires_at 已过的未锁定事实，返回删除数量。锁定
// 事实无论过期与否都保留。
// CleanupExpiredFacts soft-deletes unlocked facts whose expires_at has passed
// and returns how many were removed. Locked facts are kept regardless of
// expiry.
func (s *Store) CleanupExpiredFacts(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE facts SET deleted = 1, updated_at = ?
		 WHERE deleted = 0 AND locked = 0 AND expires_at != '' AND expires_at <= ?`,
		nowRFC3339(), now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired facts: %w", err)
	}
	return res.RowsAffected()
}

// PurgeFactsOlderThan 软删除早于 cutoff 的未锁定事实，返回删除数量。
// PurgeFactsOlderThan soft-deletes unlocked facts not updated since cutoff and
// returns how many were removed.
func (s *Store) PurgeFactsOlderThan(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`UPDATE facts SET deleted = 1, updated_at = ?
		 WHERE deleted = 0 AND locked = 0 AND updated_at < ?`,
		nowRFC3339(), cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("purge facts: %w", err)
	}
	return res.RowsAffected()
}

// AddEvent 记录一条会话事件。
// AddEvent records one session event.
func (s *Store) AddEvent(sessionID, kind, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO events (session_id, kind, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, kind, content, nowRFC3339(),
	)
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}
	return nil
}

// SessionEvents 返回某会话的事件，时间升序。
// SessionEvents returns a session's events in chronological order.
func (s *Store) SessionEvents(sessionID string, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, kind, content, created_at FROM events
		 WHERE session_id = ? ORDER BY id ASC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Content, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CleanupEvents 硬删除早于 cutoff 的事件。事件是原始日志，无需软删除。
// CleanupEvents hard-deletes events older than cutoff. Events are raw logs;
// no soft delete needed.
func (s *Store) CleanupEvents(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleanup events: %w", err)
	}
	return res.RowsAffected()
}

// AddEpisode 保存一段会话摘要。
// AddEpisode saves one session summary.
func (s *Store) AddEpisode(sessionID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO episodes (session_id, summary, created_at) VALUES (?, ?, ?)`,
		sessionID, summary, nowRFC3339(),
	)
	if err != nil {
		return fmt.Errorf("add episode: %w", err)
	}
	return nil
}

// RecentEpisodes 返回最近的情景摘要，最新在前。
// RecentEpisodes returns the newest episode summaries first.
func (s *Store) RecentEpisodes(limit int) ([]Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, summary, created_at FROM episodes
		 ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	defer rows.Close()
	var out []Episode
	for rows.Next() {
		var e Episode
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Summary, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CleanupEpisodes 硬删除早于 cutoff 的情景摘要。
// CleanupEpisodes hard-deletes episodes older than cutoff.
func (s *Store) CleanupEpisodes(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM episodes WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleanup episodes: %w", err)
	}
	return res.RowsAffected()
}

// ExportFacts 导出全部未删除事实为 JSON。
// ExportFacts dumps every live fact as JSON.
func (s *Store) ExportFacts() ([]byte, error) {
	facts, err := s.RecentFacts(1 << 20)
	if err != nil {
		return nil, err
	}
	type exported struct {
		Subject    string  `json:"subject"`
		Predicate  string  `json:"predicate"`
		Object     string  `json:"object"`
		Confidence float64 `json:"confidence"`
		Source     string  `json:"source"`
		Locked     bool    `json:"locked"`
	}
	out := make([]exported, 0, len(facts))
	for _, f := range facts {
		out = append(out, exported{f.Subject, f.Predicate, f.Object, f.Confidence, f.Source, f.Locked})
	}
	return json.MarshalIndent(out, "", "  ")
}

// ImportFacts 导入 JSON 事实，逐条插入（不去重、不覆盖既有事实）。
// ImportFacts loads facts from JSON, inserting each row additively without
// dedup or overwrite of existing facts.
func (s *Store) ImportFacts(data []byte) (int, error) {
	var in []struct {
		Subject    string  `json:"subject"`
		Predicate  string  `json:"predicate"`
		Object     string  `json:"object"`
		Confidence float64 `json:"confidence"`
		Source     string  `json:"source"`
		Locked     bool    `json:"locked"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, fmt.Errorf("parse facts: %w", err)
	}
	count := 0
	for _, f := range in {
		if f.Subject == "" || f.Predicate == "" {
			continue
		}
		conf := f.Confidence
		if conf <= 0 {
			conf = 0.8
		}
		id, err := s.InsertFact(f.Subject, f.Predicate, f.Object, f.Source, "", conf)
		if err != nil {
			return count, err
		}
		if f.Locked {
			if err := s.MarkLocked(id, true); err != nil {
				return count, err
			}
		}
		count++
	}
	return count, nil
}

// CountStats 返回各表存量。
// CountStats returns live row counts.
func (s *Store) CountStats() (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM facts WHERE deleted = 0`).Scan(&st.Facts); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&st.Events); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM episodes`).Scan(&st.Episodes); err != nil {
		return st, err
	}
	return st, nil
}
