package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"valet/internal/actions"
	"valet/internal/goals"
	"valet/internal/memory"
)

func TestRegistryExecute(t *testing.T) {
	store, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	todos, err := memory.NewTodoList(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(MemoryTools(store, todos, "s1")...)

	if !reg.Has("remember_fact") || !reg.Has("todo_add") {
		t.Fatalf("names = %v", reg.Names())
	}

	out, err := reg.Execute(context.Background(), "remember_fact",
		json.RawMessage(`{"predicate":"timezone","object":"Europe/Berlin"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "timezone") {
		t.Errorf("out = %q", out)
	}
	facts, _ := store.SearchFacts("Berlin", 5)
	if len(facts) != 1 || facts[0].Subject != "user" {
		t.Errorf("facts = %+v", facts)
	}

	if _, err := reg.Execute(context.Background(), "nope", nil); err == nil {
		t.Error("unknown tool should fail")
	}
	if _, err := reg.Execute(context.Background(), "remember_fact", json.RawMessage(`{bad`)); err == nil {
		t.Error("bad args should fail")
	}
}

func TestGoalToolsRoundTrip(t *testing.T) {
	mgr, err := goals.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry(GoalTools(mgr)...)
	ctx := context.Background()

	out, err := reg.Execute(ctx, "create_goal",
		json.RawMessage(`{"description":"tidy inbox","steps":["archive","unsubscribe"]}`))
	if err != nil {
		t.Fatal(err)
	}
	id := out[strings.Index(out, "[")+1 : strings.Index(out, "]")]

	out, err = reg.Execute(ctx, "advance_goal", json.RawMessage(`{"id":"`+id+`"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "archive") {
		t.Errorf("advance = %q", out)
	}

	out, err = reg.Execute(ctx, "list_goals", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "← NEXT") {
		t.Errorf("list = %q", out)
	}
}

func TestWriteFileQualityWarning(t *testing.T) {
	dir := t.TempDir()
	noGit := func(context.Context, string, ...string) (string, error) { return "", nil }
	reg := NewRegistry(WorkspaceTools(actions.NewWorkspace(dir), actions.NewGitCLI(noGit), dir)...)
	ctx := context.Background()

	out, err := reg.Execute(ctx, "write_file",
		json.RawMessage(`{"path":"gen/handler.go","content":"package gen\n\nfunc Handle() {\n\t// TODO: finish this\n}\n"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote gen/handler.go") {
		t.Errorf("out = %q", out)
	}
	if !strings.Contains(out, "QUALITY CHECK") {
		t.Errorf("placeholder content should carry a warning: %q", out)
	}

	out, err = reg.Execute(ctx, "write_file",
		json.RawMessage(`{"path":"gen/full.go","content":"package gen\n\nfunc Handle() int { return 42 }\n"}`))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "QUALITY CHECK") {
		t.Errorf("complete content should not warn: %q", out)
	}
}

func TestCodebaseGraphTool(t *testing.T) {
	dir := t.TempDir()
	noGit := func(context.Context, string, ...string) (string, error) { return "", nil }
	reg := NewRegistry(WorkspaceTools(actions.NewWorkspace(dir), actions.NewGitCLI(noGit), dir)...)
	ctx := context.Background()

	if _, err := reg.Execute(ctx, "write_file",
		json.RawMessage(`{"path":"pkg/a.go","content":"package pkg\n\nimport \"fmt\"\n\nfunc A() { fmt.Println() }\n"}`)); err != nil {
		t.Fatal(err)
	}
	out, err := reg.Execute(ctx, "codebase_graph", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "pkg (1 files)") || !strings.Contains(out, "imports: fmt") {
		t.Errorf("graph = %q", out)
	}
}

func TestDefinitionsAreWellFormed(t *testing.T) {
	store, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	todos, _ := memory.NewTodoList(t.TempDir())
	reg := NewRegistry(MemoryTools(store, todos, "s1")...)

	for _, def := range reg.Definitions() {
		if def.Type != "function" || def.Function.Name == "" {
			t.Errorf("bad def: %+v", def)
		}
		if def.Function.Parameters == nil {
			t.Errorf("%s has nil parameters", def.Function.Name)
		}
	}
}
