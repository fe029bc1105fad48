package session

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode 会话模式 / Mode is the session operating mode.
type Mode string

const (
	ModeDefault Mode = "default"
	ModeCoding  Mode = "coding"
)

// State 跟踪跨轮次的短期会话状态，用于指代消解与用量显示。
// 进程生命周期内单实例，不跨重启持久化。
// State tracks short-lived cross-turn session context for reference resolution
// and usage display. One instance per process, never persisted across restarts.
type State struct {
	mu sync.RWMutex

	lastApp   string
	lastURL   string
	lastSite  string // always derived from lastURL's host, never set directly
	lastTitle string
	lastTask  string
	lastTool  string

	mode Mode

	totalInputTokens  int
	totalOutputTokens int
	contextWindow     int

	interrupt atomic.Bool
}

// NewState 创建会话状态，contextWindow 为 token 预算（<=0 时使用 128000）。
// NewState creates session state; contextWindow is the token budget (<=0 defaults to 128000).
func NewState(contextWindow int) *State {
	if contextWindow <= 0 {
		contextWindow = 128000
	}
	return &State{mode: ModeDefault, contextWindow: contextWindow}
}

func (s *State) UpdateApp(app string) {
	app = strings.TrimSpace(app)
	if app == "" {
		return
	}
	s.mu.Lock()
	s.lastApp = app
	s.mu.Unlock()
}

func (s *State) UpdateTask(task string) {
	task = strings.TrimSpace(task)
	if task == "" {
		return
	}
	s.mu.Lock()
	s.lastTask = task
	s.mu.Unlock()
}

func (s *State) UpdateTool(tool string) {
	tool = strings.TrimSpace(tool)
	if tool == "" {
		return
	}
	s.mu.Lock()
	s.lastTool = tool
	s.mu.Unlock()
}

// UpdateBrowser 记录最近访问的 URL 与标题；lastSite 永远从 URL 的 host 派生。
// UpdateBrowser records the last visited URL and title; lastSite is always
// derived from the URL host, never set independently.
func (s *State) UpdateBrowser(rawURL, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" {
		s.lastURL = rawURL
		if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
			s.lastSite = u.Host
		}
	}
	if title = strings.TrimSpace(title); title != "" {
		s.lastTitle = title
	}
}

func (s *State) LastApp() string   { s.mu.RLock(); defer s.mu.RUnlock(); return s.lastApp }
func (s *State) LastURL() string   { s.mu.RLock(); defer s.mu.RUnlock(); return s.lastURL }
func (s *State) LastSite() string  { s.mu.RLock(); defer s.mu.RUnlock(); return s.lastSite }
func (s *State) LastTitle() string { s.mu.RLock(); defer s.mu.RUnlock(); return s.lastTitle }
func (s *State) LastTask() string  { s.mu.RLock(); defer s.mu.RUnlock(); return s.lastTask }

func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *State) SetMode(mode Mode) {
	switch mode {
	case ModeDefault, ModeCoding:
	default:
		return
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// RequestInterrupt 设置协作式中断标志；由按键监听等异步路径调用。
// RequestInterrupt sets the cooperative interrupt flag; called asynchronously
// (e.g. from a key-press listener).
func (s *State) RequestInterrupt() { s.interrupt.Store(true) }

// InterruptRequested 查询中断标志；由升级执行路径在每个工作单元后轮询。
// InterruptRequested reports the interrupt flag; polled by the escalation path
// after each unit of work.
func (s *State) InterruptRequested() bool { return s.interrupt.Load() }

func (s *State) ClearInterrupt() { s.interrupt.Store(false) }

// UpdateTokens 累加 token 用量计数器。
// UpdateTokens accumulates the token usage counters.
func (s *State) UpdateTokens(inputTokens, outputTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inputTokens > 0 {
		s.totalInputTokens += inputTokens
	}
	if outputTokens > 0 {
		s.totalOutputTokens += outputTokens
	}
}

// UsageString 返回 "ctx used/window left n" 形式的用量字符串。
// UsageString returns usage in the form "ctx used/window left n".
func (s *State) UsageString() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	used := s.totalInputTokens + s.totalOutputTokens
	if s.contextWindow <= 0 {
		return fmt.Sprintf("ctx %d", used)
	}
	remaining := s.contextWindow - used
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("ctx %d/%d left %d", used, s.contextWindow, remaining)
}

// PromptBlock 生成注入系统提示的会话上下文块；无内容时返回空串。
// PromptBlock renders the session context block for prompt injection; empty
// when nothing is tracked.
func (s *State) PromptBlock() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := []string{"## 🧭 SESSION CONTEXT"}
	if s.lastSite != "" {
		lines = append(lines, "- Last site: "+s.lastSite)
	}
	if s.lastURL != "" {
		lines = append(lines, "- Last URL: "+s.lastURL)
	}
	if s.lastTitle != "" {
		lines = append(lines, "- Last page title: "+s.lastTitle)
	}
	if s.lastApp != "" {
		lines = append(lines, "- Last app: "+s.lastApp)
	}
	if s.lastTask != "" {
		lines = append(lines, "- Last user task: "+s.lastTask)
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}
