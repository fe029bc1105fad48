package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"valet/internal/actions"
	"valet/internal/memory"
	"valet/internal/safety"
)

var (
	contactSplitRe = regexp.MustCompile(`\s*(?:,|;|&|\band\b)\s*`)
	todoAddRe      = regexp.MustCompile(`(?i)^todo add\s+(.+)$`)
	todoDoneRe     = regexp.MustCompile(`(?i)^todo (?:done|complete)\s+(\d+)$`)
	searchRe       = regexp.MustCompile(`(?i)^(?:search(?: the web)?(?: for)?|google)\s+(.+)$`)
	rememberRe     = regexp.MustCompile(`(?i)^remember\s+(?:that\s+)?(.+)$`)
	memSearchRe    = regexp.MustCompile(`(?i)^(?:memory search|what do you remember about)\s+(.+)$`)
	forgetRe       = regexp.MustCompile(`(?i)^forget fact\s+(\d+)$`)
	memImportRe    = regexp.MustCompile(`(?i)^memory import\s+(.+)$`)
	lockRe         = regexp.MustCompile(`(?i)^(lock|unlock) fact\s+(\d+)$`)
	newGoalRe      = regexp.MustCompile(`(?i)^(?:new|create) goal\s+(.+)$`)
	advanceGoalRe  = regexp.MustCompile(`(?i)^advance goal\s+(\S+)$`)
	doneGoalRe     = regexp.MustCompile(`(?i)^complete goal\s+(\S+)$`)
	grepRe         = regexp.MustCompile(`(?i)^grep\s+(.+)$`)
	readFileRe     = regexp.MustCompile(`(?i)^read file\s+(.+)$`)
	runPrefixRe    = regexp.MustCompile(`(?i)^(?:run|execute|cmd):\s*(.+)$`)
	backtickRe     = regexp.MustCompile("`([^`]+)`")
	mcpCallRe      = regexp.MustCompile(`(?i)^call mcp tool\s+(\S+)(?:\s+with\s+(.+))?$`)
)

// handleMessaging "send M to C" 模式。取片段中最后一个 " to " 切分，避免消息
// 正文里的 "to" 误切；联系人按 ,/and/&/; 拆分后逐个顺序发送。
// handleMessaging covers the "send M to C" pattern. The fragment splits on the
// LAST " to " so a "to" inside the message body cannot mis-split; contacts are
// split on ,/and/&/; and messaged one at a time, in order.
func (r *Router) handleMessaging(ctx context.Context, text, lower string) (string, bool) {
	idx := strings.Index(lower, "send ")
	if idx < 0 {
		return "", false
	}
	fragment := text[idx+len("send "):]
	cut := strings.LastIndex(strings.ToLower(fragment), " to ")
	if cut < 0 {
		return "", false
	}
	message := strings.TrimSpace(fragment[:cut])
	contactsRaw := strings.TrimSpace(fragment[cut+len(" to "):])
	if message == "" || contactsRaw == "" {
		return "❌ Couldn't parse the message, try: send <message> to <contact>", true
	}
	message = strings.Trim(message, `"'`)
	for _, p := range []string{"a message saying ", "message saying ", "a message ", "message "} {
		if strings.HasPrefix(strings.ToLower(message), p) {
			message = strings.TrimSpace(message[len(p):])
			message = strings.Trim(message, `"'`)
			break
		}
	}

	web := strings.Contains(lower, "browser") || strings.Contains(lower, "web") ||
		strings.Contains(lower, "whatsapp.com")

	// Drop channel qualifiers trailing the contact list.
	for _, q := range []string{"on whatsapp web", "on whatsapp.com", "on whatsapp", "in the browser", "on the web", "via whatsapp"} {
		if i := strings.Index(strings.ToLower(contactsRaw), q); i >= 0 {
			contactsRaw = strings.TrimSpace(contactsRaw[:i])
		}
	}
	if contactsRaw == "" {
		return "❌ Couldn't parse the contact, try: send <message> to <contact>", true
	}

	var lines []string
	for _, contact := range contactSplitRe.Split(contactsRaw, -1) {
		contact = strings.TrimSpace(contact)
		if contact == "" {
			continue
		}
		var (
			out string
			err error
		)
		if web {
			out, err = r.deps.Messaging.SendWebMessage(ctx, contact, message)
		} else {
			out, err = r.deps.Messaging.SendMessage(ctx, contact, message)
		}
		if err != nil {
			lines = append(lines, fmt.Sprintf("❌ %s: %v", contact, err))
			continue
		}
		lines = append(lines, out)
	}
	if len(lines) == 0 {
		return "❌ No contact found in: " + contactsRaw, true
	}
	return strings.Join(lines, "\n"), true
}

func (r *Router) handleTodo(ctx context.Context, text, lower string) (string, bool) {
	if m := todoAddRe.FindStringSubmatch(text); m != nil {
		if err := r.deps.Todos.Add(strings.TrimSpace(m[1])); err != nil {
			return fail(err), true
		}
		return "📝 Added: " + strings.TrimSpace(m[1]), true
	}
	if m := todoDoneRe.FindStringSubmatch(text); m != nil {
		index, _ := strconv.Atoi(m[1])
		item, err := r.deps.Todos.Complete(index)
		if err != nil {
			return fail(err), true
		}
		return "✅ Done: " + item.Text, true
	}
	if lower == "todos" || lower == "todo list" || lower == "show todos" || lower == "list todos" {
		return r.deps.Todos.Render(), true
	}
	return "", false
}

func (r *Router) handleWebSearch(ctx context.Context, text, lower string) (string, bool) {
	m := searchRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	out, err := r.deps.Search.Web(ctx, strings.TrimSpace(m[1]))
	if err != nil {
		return fail(err), true
	}
	return out, true
}

func renderFacts(facts []memory.Fact) string {
	if len(facts) == 0 {
		return "🧠 Nothing stored about that."
	}
	var lines []string
	for _, f := range facts {
		locked := ""
		if f.Locked {
			locked = " 🔒"
		}
		lines = append(lines, fmt.Sprintf("[%d] %s %s: %s%s", f.ID, f.Subject, f.Predicate, f.Object, locked))
	}
	return strings.Join(lines, "\n")
}

func (r *Router) handleMemory(ctx context.Context, text, lower string) (string, bool) {
	trimmed := strings.TrimSpace(text)

	if m := rememberRe.FindStringSubmatch(trimmed); m != nil {
		payload := strings.TrimSpace(m[1])
		n, err := memory.DistillAndStore(r.deps.Memory, "", payload)
		if err != nil {
			return fail(err), true
		}
		if n > 0 {
			return fmt.Sprintf("🧠 Noted, saved %d fact(s).", n), true
		}
		// Nothing distillable: keep it verbatim as a free-form note.
		if _, err := r.deps.Memory.InsertFact("user", "note", payload, "manual", "", 1.0); err != nil {
			return fail(err), true
		}
		return "🧠 Noted.", true
	}
	if m := memSearchRe.FindStringSubmatch(trimmed); m != nil {
		facts, err := r.deps.Memory.SearchFacts(strings.TrimSpace(m[1]), 10)
		if err != nil {
			return fail(err), true
		}
		return renderFacts(facts), true
	}
	if m := forgetRe.FindStringSubmatch(trimmed); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		if err := r.deps.Memory.MarkDeleted(id); err != nil {
			return fail(err), true
		}
		return fmt.Sprintf("🗑 Forgot fact %d.", id), true
	}
	if m := lockRe.FindStringSubmatch(trimmed); m != nil {
		id, _ := strconv.ParseInt(m[2], 10, 64)
		lock := strings.EqualFold(m[1], "lock")
		if err := r.deps.Memory.MarkLocked(id, lock); err != nil {
			return fail(err), true
		}
		if lock {
			return fmt.Sprintf("🔒 Locked fact %d, it will never be purged.", id), true
		}
		return fmt.Sprintf("🔓 Unlocked fact %d.", id), true
	}
	if lower == "memory stats" {
		st, err := r.deps.Memory.CountStats()
		if err != nil {
			return fail(err), true
		}
		return fmt.Sprintf("🧠 %d facts, %d events, %d episodes.", st.Facts, st.Events, st.Episodes), true
	}
	if lower == "memory export" {
		data, err := r.deps.Memory.ExportFacts()
		if err != nil {
			return fail(err), true
		}
		return string(data), true
	}
	if m := memImportRe.FindStringSubmatch(trimmed); m != nil {
		path := strings.TrimSpace(m[1])
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.deps.WorkDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fail(err), true
		}
		n, err := r.deps.Memory.ImportFacts(data)
		if err != nil {
			return fail(err), true
		}
		// Import is additive: re-importing the same file adds rows again.
		return fmt.Sprintf("📥 Imported %d fact(s).", n), true
	}
	return "", false
}

func (r *Router) handleGoals(ctx context.Context, text, lower string) (string, bool) {
	trimmed := strings.TrimSpace(text)

	if m := newGoalRe.FindStringSubmatch(trimmed); m != nil {
		desc := strings.TrimSpace(m[1])
		var steps []string
		if i := strings.Index(desc, ":"); i >= 0 {
			for _, s := range strings.Split(desc[i+1:], ";") {
				if s = strings.TrimSpace(s); s != "" {
					steps = append(steps, s)
				}
			}
			desc = strings.TrimSpace(desc[:i])
		}
		if desc == "" {
			return "❌ Goal needs a description, try: new goal <description>: <step>; <step>", true
		}
		if len(steps) == 0 {
			steps = []string{desc}
		}
		g, err := r.deps.Goals.Create(desc, steps)
		if err != nil {
			return fail(err), true
		}
		return fmt.Sprintf("🎯 Goal created [%s] %s (%d steps)", g.ID, g.Description, len(g.Steps)), true
	}
	if m := advanceGoalRe.FindStringSubmatch(trimmed); m != nil {
		out, err := r.deps.Goals.Advance(m[1])
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := doneGoalRe.FindStringSubmatch(trimmed); m != nil {
		if err := r.deps.Goals.Complete(m[1]); err != nil {
			return fail(err), true
		}
		return "🎉 Goal marked complete.", true
	}
	if lower == "goals" || lower == "show goals" || lower == "list goals" {
		if block := r.deps.Goals.PromptBlock(); block != "" {
			return block, true
		}
		return "🎯 No active goals.", true
	}
	return "", false
}

func (r *Router) handleCodebase(ctx context.Context, text, lower string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(lower, "codebase graph") || strings.Contains(lower, "generate graph") ||
		lower == "graph the codebase" {
		out, err := r.deps.Files.Graph(ctx)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := grepRe.FindStringSubmatch(trimmed); m != nil {
		out, err := r.deps.Files.Grep(ctx, ".", strings.TrimSpace(m[1]))
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := readFileRe.FindStringSubmatch(trimmed); m != nil {
		out, err := r.deps.Files.Read(ctx, strings.TrimSpace(m[1]))
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}

func (r *Router) handleGit(ctx context.Context, text, lower string) (string, bool) {
	trimmed := strings.TrimSpace(lower)
	if trimmed == "git status" {
		out, err := r.deps.Git.Status(ctx, r.deps.WorkDir)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if strings.HasPrefix(trimmed, "git commit") {
		idx := strings.Index(lower, "git commit") + len("git commit")
		message := strings.Trim(strings.TrimSpace(text[idx:]), `"'`)
		if message == "" {
			return "❌ Commit needs a message, try: git commit <message>", true
		}
		out, err := r.deps.Git.Commit(ctx, r.deps.WorkDir, message)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}

// handleTerminal run:/execute:/cmd: 前缀命令与反引号内联命令。每条命令先过
// 安全校验，命中禁用模式直接短路返回。
// handleTerminal covers run:/execute:/cmd:-prefixed commands and
// backtick-quoted inline commands. Every command passes the safety validator
// first; a block short-circuits.
func (r *Router) handleTerminal(ctx context.Context, text, lower string) (string, bool) {
	command := ""
	if m := runPrefixRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		command = strings.TrimSpace(m[1])
	} else if strings.Contains(lower, "run") || strings.Contains(lower, "execute") {
		if m := backtickRe.FindStringSubmatch(text); m != nil {
			command = strings.TrimSpace(m[1])
		}
	}
	if command == "" {
		return "", false
	}
	if reason := safety.ValidateCommand(command); reason != "" {
		return reason, true
	}
	out, err := r.deps.Terminal.Run(ctx, command)
	if err != nil {
		if out != "" {
			return fmt.Sprintf("❌ %v\n%s", err, out), true
		}
		return fail(err), true
	}
	if out == "" {
		return "✅ Command finished with no output.", true
	}
	return out, true
}

func (r *Router) handleMCP(ctx context.Context, text, lower string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if lower == "mcp tools" || lower == "list mcp tools" {
		out, err := r.deps.MCP.ListTools(ctx)
		if errors.Is(err, actions.ErrUnsupported) {
			return "❌ No MCP server configured.", true
		}
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := mcpCallRe.FindStringSubmatch(trimmed); m != nil {
		args := map[string]any{}
		if strings.TrimSpace(m[2]) != "" {
			if err := json.Unmarshal([]byte(m[2]), &args); err != nil {
				return fmt.Sprintf("❌ Bad JSON args for MCP call: %v", err), true
			}
		}
		out, err := r.deps.MCP.CallTool(ctx, m[1], args)
		if errors.Is(err, actions.ErrUnsupported) {
			return "❌ No MCP server configured.", true
		}
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}
