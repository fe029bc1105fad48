// Package goals 管理多步目标的生命周期：创建、推进、完成，并同步落盘 goals.json。
// Package goals manages the lifecycle of multi-step goals: create, advance,
// complete, persisted synchronously to goals.json.
package goals

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// 目标状态。paused 保留给手动暂停，推进逻辑不会产生它。
// Goal statuses. paused is reserved for manual suspension; the advance logic
// never produces it.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusPaused    = "paused"
)

// Goal 一个带有序步骤的多步目标。
// Goal is a multi-step objective with ordered steps.
type Goal struct {
	ID             string    `json:"id"`
	Description    string    `json:"description"`
	Steps          []string  `json:"steps"`
	CompletedSteps []int     `json:"completed_steps"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// Done 判断步骤 i 是否已完成。
// Done reports whether step i is complete.
func (g *Goal) Done(i int) bool {
	for _, c := range g.CompletedSteps {
		if c == i {
			return true
		}
	}
	return false
}

// NextStep 返回最小的未完成步骤下标，全部完成时返回 -1。
// NextStep returns the lowest incomplete step index, or -1 when all are done.
func (g *Goal) NextStep() int {
	for i := range g.Steps {
		if !g.Done(i) {
			return i
		}
	}
	return -1
}

// Manager 目标管理器。所有修改在持锁状态下同步写盘。
// Manager owns the goal list. Every mutation is written to disk synchronously
// while the lock is held.
type Manager struct {
	mu    sync.Mutex
	path  string
	goals []*Goal
}

// NewManager 从 dir/goals.json 加载目标；文件不存在视为空列表。
// NewManager loads goals from dir/goals.json; a missing file means an empty
// list.
func NewManager(dir string) (*Manager, error) {
	m := &Manager{path: filepath.Join(dir, "goals.json")}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read goals: %w", err)
	}
	if err := json.Unmarshal(data, &m.goals); err != nil {
		return nil, fmt.Errorf("parse goals: %w", err)
	}
	return m, nil
}

// save 调用方必须持有 m.mu。
// save requires m.mu held.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.goals, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Create 新建目标并立即持久化。ID 取 uuid 前 8 位。
// Create adds a goal and persists immediately. The ID is the first 8 chars of
// a uuid.
func (m *Manager) Create(description string, steps []string) (*Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := &Goal{
		ID:             uuid.NewString()[:8],
		Description:    description,
		Steps:          steps,
		CompletedSteps: []int{},
		Status:         StatusActive,
		CreatedAt:      time.Now(),
	}
	m.goals = append(m.goals, g)
	if err := m.save(); err != nil {
		m.goals = m.goals[:len(m.goals)-1]
		return nil, fmt.Errorf("persist goal: %w", err)
	}
	return g, nil
}

// Get 按 ID 查找目标。
// Get looks a goal up by ID.
func (m *Manager) Get(id string) (*Goal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.goals {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// Active 返回所有活跃目标，按创建顺序。
// Active returns all active goals in creation order.
func (m *Manager) Active() []*Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Goal
	for _, g := range m.goals {
		if g.Status == StatusActive {
			out = append(out, g)
		}
	}
	return out
}

// Advance 完成目标的下一个未完成步骤。完成最后一步时目标状态恰好翻转一次为
// completed；对已完成目标再次调用不做任何修改。
// Advance completes the goal's next incomplete step. Completing the final step
// flips the status to completed exactly once; calling Advance on a completed
// goal mutates nothing.
func (m *Manager) Advance(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var g *Goal
	for _, it := range m.goals {
		if it.ID == id {
			g = it
			break
		}
	}
	if g == nil {
		return "", fmt.Errorf("goal %s not found", id)
	}
	if g.Status == StatusCompleted {
		return fmt.Sprintf("Goal %q is already fully complete.", g.Description), nil
	}
	next := g.NextStep()
	if next < 0 {
		g.Status = StatusCompleted
		if err := m.save(); err != nil {
			return "", fmt.Errorf("persist goal: %w", err)
		}
		return fmt.Sprintf("🎉 Goal complete: %s", g.Description), nil
	}
	g.CompletedSteps = append(g.CompletedSteps, next)
	msg := fmt.Sprintf("✅ Step done: %s (%d/%d)", g.Steps[next], len(g.CompletedSteps), len(g.Steps))
	if g.NextStep() < 0 {
		g.Status = StatusCompleted
		msg = fmt.Sprintf("🎉 Goal complete: %s", g.Description)
	}
	if err := m.save(); err != nil {
		return "", fmt.Errorf("persist goal: %w", err)
	}
	return msg, nil
}

// Complete 直接把目标标记为已完成。
// Complete marks a goal completed outright.
func (m *Manager) Complete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.goals {
		if g.ID == id {
			g.Status = StatusCompleted
			return m.save()
		}
	}
	return fmt.Errorf("goal %s not found", id)
}

// List 返回全部目标快照。
// List returns a snapshot of every goal.
func (m *Manager) List() []*Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Goal, len(m.goals))
	copy(out, m.goals)
	return out
}

// PromptBlock 渲染活跃目标清单注入提示词；无活跃目标时返回空串。
// PromptBlock renders the active goal list for prompt injection; empty when
// there is nothing active.
func (m *Manager) PromptBlock() string {
	active := m.Active()
	if len(active) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## 🎯 ACTIVE GOALS\n")
	for _, g := range active {
		fmt.Fprintf(&b, "- [%s] %s (%d/%d)\n", g.ID, g.Description, len(g.CompletedSteps), len(g.Steps))
		next := g.NextStep()
		for i, step := range g.Steps {
			mark := "⬜"
			if g.Done(i) {
				mark = "✅"
			}
			if i == next {
				fmt.Fprintf(&b, "  %s %s  ← NEXT\n", mark, step)
			} else {
				fmt.Fprintf(&b, "  %s %s\n", mark, step)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
