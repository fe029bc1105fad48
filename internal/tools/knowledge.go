package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"valet/internal/actions"
	"valet/internal/goals"
	"valet/internal/memory"
	"valet/internal/safety"
)

// MemoryTools 事实记忆与待办工具。
// MemoryTools builds the fact-memory and todo tools.
func MemoryTools(store *memory.Store, todos *memory.TodoList, sessionID string) []Tool {
	return []Tool{
		&funcTool{
			name: "remember_fact",
			desc: "Store a long-lived fact about the user as subject/predicate/object",
			params: objParams(map[string]any{
				"subject":   strProp("Usually \"user\""),
				"predicate": strProp("e.g. preference, timezone, note"),
				"object":    strProp("The fact value"),
			}, "predicate", "object"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Subject   string `json:"subject"`
					Predicate string `json:"predicate"`
					Object    string `json:"object"`
				}](args)
				if err != nil {
					return "", err
				}
				if in.Subject == "" {
					in.Subject = "user"
				}
				id, err := store.UpsertFact(in.Subject, in.Predicate, in.Object, "tool", sessionID, 0.9)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("🧠 Saved fact %d: %s %s = %s", id, in.Subject, in.Predicate, in.Object), nil
			},
		},
		&funcTool{
			name:   "memory_search",
			desc:   "Search stored facts about the user",
			params: objParams(map[string]any{"query": strProp("Substring to search")}, "query"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Query string `json:"query"`
				}](args)
				if err != nil {
					return "", err
				}
				facts, err := store.SearchFacts(in.Query, 10)
				if err != nil {
					return "", err
				}
				if len(facts) == 0 {
					return "Nothing stored about that.", nil
				}
				var lines []string
				for _, f := range facts {
					lines = append(lines, fmt.Sprintf("[%d] %s %s: %s", f.ID, f.Subject, f.Predicate, f.Object))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		&funcTool{
			name:   "todo_add",
			desc:   "Add an item to the user's todo list",
			params: objParams(map[string]any{"text": strProp("Todo text")}, "text"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Text string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				if err := todos.Add(in.Text); err != nil {
					return "", err
				}
				return "📝 Added: " + in.Text, nil
			},
		},
		&funcTool{
			name: "todo_list",
			desc: "Show the user's todo list",
			run: func(context.Context, json.RawMessage) (string, error) {
				return todos.Render(), nil
			},
		},
		&funcTool{
			name:   "todo_complete",
			desc:   "Mark a todo done by its 1-based number",
			params: objParams(map[string]any{"index": intProp("1-based todo number")}, "index"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Index int `json:"index"`
				}](args)
				if err != nil {
					return "", err
				}
				item, err := todos.Complete(in.Index)
				if err != nil {
					return "", err
				}
				return "✅ Done: " + item.Text, nil
			},
		},
	}
}

// GoalTools 目标管理工具。
// GoalTools builds the goal-management tools.
func GoalTools(mgr *goals.Manager) []Tool {
	return []Tool{
		&funcTool{
			name: "create_goal",
			desc: "Create a multi-step goal with ordered steps",
			params: objParams(map[string]any{
				"description": strProp("What the goal is"),
				"steps":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			}, "description", "steps"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Description string   `json:"description"`
					Steps       []string `json:"steps"`
				}](args)
				if err != nil {
					return "", err
				}
				if len(in.Steps) == 0 {
					return "", fmt.Errorf("create_goal: at least one step required")
				}
				g, err := mgr.Create(in.Description, in.Steps)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("🎯 Goal created [%s] %s (%d steps)", g.ID, g.Description, len(g.Steps)), nil
			},
		},
		&funcTool{
			name:   "advance_goal",
			desc:   "Mark the next step of a goal as done",
			params: objParams(map[string]any{"id": strProp("Goal ID")}, "id"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					ID string `json:"id"`
				}](args)
				if err != nil {
					return "", err
				}
				return mgr.Advance(in.ID)
			},
		},
		&funcTool{
			name:   "complete_goal",
			desc:   "Mark a whole goal as completed",
			params: objParams(map[string]any{"id": strProp("Goal ID")}, "id"),
			run: func(_ context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					ID string `json:"id"`
				}](args)
				if err != nil {
					return "", err
				}
				if err := mgr.Complete(in.ID); err != nil {
					return "", err
				}
				return "🎉 Goal marked complete.", nil
			},
		},
		&funcTool{
			name: "list_goals",
			desc: "List active goals with step progress",
			run: func(context.Context, json.RawMessage) (string, error) {
				if block := mgr.PromptBlock(); block != "" {
					return block, nil
				}
				return "No active goals.", nil
			},
		},
	}
}

// WorkspaceTools 文件与 git 工具。
// WorkspaceTools builds the file and git tools.
func WorkspaceTools(files actions.Files, git actions.Git, workDir string) []Tool {
	return []Tool{
		&funcTool{
			name:   "read_file",
			desc:   "Read a file from the workspace",
			params: objParams(map[string]any{"path": strProp("File path relative to the workspace")}, "path"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Path string `json:"path"`
				}](args)
				if err != nil {
					return "", err
				}
				return files.Read(ctx, in.Path)
			},
		},
		&funcTool{
			name:   "write_file",
			desc:   "Write content to a file in the workspace",
			params: objParams(map[string]any{"path": strProp("File path"), "content": strProp("Full file content")}, "path", "content"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Path    string `json:"path"`
					Content string `json:"content"`
				}](args)
				if err != nil {
					return "", err
				}
				out, err := files.Write(ctx, in.Path, in.Content)
				if err != nil {
					return "", err
				}
				// The file is written either way; the quality warning rides
				// along so the model fills the placeholder in a followup.
				if warn := safety.ValidateCode(in.Content); warn != "" {
					out += "\n" + warn
				}
				return out, nil
			},
		},
		&funcTool{
			name: "codebase_graph",
			desc: "Summarize the workspace's directories and their Go imports",
			run: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return files.Graph(ctx)
			},
		},
		&funcTool{
			name:   "grep_files",
			desc:   "Search workspace files by regular expression",
			params: objParams(map[string]any{"pattern": strProp("Regular expression")}, "pattern"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Pattern string `json:"pattern"`
				}](args)
				if err != nil {
					return "", err
				}
				return files.Grep(ctx, ".", in.Pattern)
			},
		},
		&funcTool{
			name: "git_status",
			desc: "Show git working tree status",
			run: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return git.Status(ctx, workDir)
			},
		},
		&funcTool{
			name:   "git_commit",
			desc:   "Stage everything and commit with a message",
			params: objParams(map[string]any{"message": strProp("Commit message")}, "message"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Message string `json:"message"`
				}](args)
				if err != nil {
					return "", err
				}
				return git.Commit(ctx, workDir, in.Message)
			},
		},
	}
}
