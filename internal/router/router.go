// Package router 实现零 LLM 成本的确定性意图分发：一组有序的 守卫→处理 规则
// 自上而下匹配，首个命中者执行并返回；全部未命中则交还调用方升级到 LLM 执行器。
// Package router implements zero-LLM-cost deterministic intent dispatch: an
// ordered list of guard→handler rules tested top to bottom, first match wins
// and executes; a full miss hands the request back for LLM escalation.
package router

import (
	"context"
	"strings"

	"valet/internal/actions"
	"valet/internal/goals"
	"valet/internal/memory"
	"valet/internal/session"
)

// Deps 路由器的全部协作方，由应用上下文注入。
// Deps are the router's collaborators, injected by the application context.
type Deps struct {
	Session   *session.State
	System    actions.System
	Media     actions.Media
	Device    actions.Device
	Messaging actions.Messaging
	Vision    actions.Vision
	Browser   *actions.Browser
	Pages     actions.Pages
	Terminal  actions.Terminal
	Search    actions.Search
	Git       actions.Git
	Files     actions.Files
	MCP       actions.MCP
	Goals     *goals.Manager
	Memory    *memory.Store
	Todos     *memory.TodoList

	// WorkDir 供 git 与文件操作使用。
	// WorkDir is used by git and file operations.
	WorkDir string

	// SessionID 事件归属；AutoDistill 命中后是否从用户文本蒸馏事实。
	// SessionID attributes audit events; AutoDistill controls fact
	// distillation from the user text after a hit.
	SessionID   string
	AutoDistill bool
}

// rule 一条 守卫→处理 规则。handle 返回 (结果, 是否命中)；命中但参数畸形时
// 返回 ❌ 开头的错误串而不是 panic。
// rule is one guard→handler pair. handle returns (result, matched); a matched
// rule with malformed arguments returns a ❌-prefixed error string, never a
// panic.
type rule struct {
	name   string
	handle func(ctx context.Context, text, lower string) (string, bool)
}

// Router 确定性分发器。规则顺序即优先级，不可重排。
// Router is the deterministic dispatcher. Rule order is priority order; do not
// reorder.
type Router struct {
	deps  Deps
	rules []rule
}

func New(deps Deps) *Router {
	r := &Router{deps: deps}
	r.rules = []rule{
		{"vision", r.handleVision},
		{"hotkey", r.handleHotkey},
		{"chrome", r.handleChrome},
		{"messaging", r.handleMessaging},
		{"navigate", r.handleNavigate},
		{"open_app", r.handleOpenApp},
		{"play_song", r.handlePlaySong},
		{"media", r.handleMedia},
		{"volume", r.handleVolume},
		{"radios", r.handleRadios},
		{"todo", r.handleTodo},
		{"web_search", r.handleWebSearch},
		{"memory", r.handleMemory},
		{"goals", r.handleGoals},
		{"codebase", r.handleCodebase},
		{"git", r.handleGit},
		{"terminal", r.handleTerminal},
		{"mcp", r.handleMCP},
	}
	return r
}

// TryHandle 尝试确定性处理。未命中返回 ("", false)，这是设计好的升级路径，
// 不是错误。
// TryHandle attempts deterministic dispatch. A miss returns ("", false); that
// is the designed escalation path, not an error.
func (r *Router) TryHandle(ctx context.Context, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, rl := range r.rules {
		if out, ok := rl.handle(ctx, text, lower); ok {
			r.deps.Session.UpdateTask(text)
			r.deps.Session.UpdateTool(rl.name)
			r.audit(text, out)
			return out, true
		}
	}
	return "", false
}

// audit 记录命中的请求与结果。持久化失败不影响返回。
// audit records the handled request and its result. Persistence failure does
// not affect the reply.
func (r *Router) audit(text, out string) {
	if r.deps.Memory == nil {
		return
	}
	_ = r.deps.Memory.AddEvent(r.deps.SessionID, "user_msg", text)
	_ = r.deps.Memory.AddEvent(r.deps.SessionID, "router_result", out)
	if r.deps.AutoDistill {
		_, _ = memory.DistillAndStore(r.deps.Memory, r.deps.SessionID, text)
	}
}

// fail 把动作错误格式化为用户可见的错误串。
// fail formats an action error into a user-visible string.
func fail(err error) string {
	return "❌ " + err.Error()
}

func mentionsBrowser(lower string) bool {
	return strings.Contains(lower, "browser") || strings.Contains(lower, "chrome")
}
