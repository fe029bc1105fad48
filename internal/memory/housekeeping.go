package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Housekeeper 按间隔触发记忆清理。上次运行时间记在旁路 JSON 文件里，进程重启
// 后间隔门仍然生效。
// Housekeeper runs memory cleanup on an interval. The last-run time lives in a
// sidecar JSON file so the interval gate survives restarts.
type Housekeeper struct {
	store      *Store
	statePath  string
	interval   time.Duration
	factTTL    time.Duration
	eventTTL   time.Duration
	episodeTTL time.Duration
}

type housekeepingState struct {
	LastRun time.Time `json:"last_run"`
}

// HousekeeperOptions TTL 为零表示该类数据不清理。
// HousekeeperOptions: a zero TTL means that class of data is never purged.
type HousekeeperOptions struct {
	Interval   time.Duration
	FactTTL    time.Duration
	EventTTL   time.Duration
	EpisodeTTL time.Duration
}

func NewHousekeeper(store *Store, dir string, opts HousekeeperOptions) *Housekeeper {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	return &Housekeeper{
		store:      store,
		statePath:  filepath.Join(dir, "housekeeping.json"),
		interval:   opts.Interval,
		factTTL:    opts.FactTTL,
		eventTTL:   opts.EventTTL,
		episodeTTL: opts.EpisodeTTL,
	}
}

func (h *Housekeeper) lastRun() time.Time {
	data, err := os.ReadFile(h.statePath)
	if err != nil {
		return time.Time{}
	}
	var st housekeepingState
	if json.Unmarshal(data, &st) != nil {
		return time.Time{}
	}
	return st.LastRun
}

func (h *Housekeeper) recordRun(t time.Time) error {
	data, err := json.Marshal(housekeepingState{LastRun: t})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.statePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(h.statePath, data, 0o644)
}

// RunIfDue 距上次运行不足 interval 时直接返回；到期则清理过期事件、情景与
// 未锁定的过期事实。锁定事实永不清理。
// RunIfDue returns immediately when the interval has not elapsed; otherwise it
// purges expired events, episodes, and unlocked expired facts. Locked facts
// are never touched.
func (h *Housekeeper) RunIfDue(now time.Time) (bool, error) {
	if now.Sub(h.lastRun()) < h.interval {
		return false, nil
	}
	if h.eventTTL > 0 {
		if _, err := h.store.CleanupEvents(now.Add(-h.eventTTL)); err != nil {
			return false, err
		}
	}
	if h.episodeTTL > 0 {
		if _, err := h.store.CleanupEpisodes(now.Add(-h.episodeTTL)); err != nil {
			return false, err
		}
	}
	if h.factTTL > 0 {
		if _, err := h.store.PurgeFactsOlderThan(now.Add(-h.factTTL)); err != nil {
			return false, err
		}
	}
	// Per-fact expiry runs regardless of the TTL settings.
	if _, err := h.store.CleanupExpiredFacts(now); err != nil {
		return false, err
	}
	if err := h.recordRun(now); err != nil {
		return true, err
	}
	return true, nil
}
