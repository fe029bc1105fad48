package actions

import (
	"context"
	"strings"
	"testing"
	"time"

	"valet/internal/bridge"
)

// recordingRunner captures invoked commands without executing anything.
type recordingRunner struct {
	calls  [][]string
	output string
	err    error
}

func (r *recordingRunner) run(_ context.Context, name string, args ...string) (string, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.output, r.err
}

func TestMacOpenApp(t *testing.T) {
	rec := &recordingRunner{}
	mac := NewMac(rec.run)
	out, err := mac.OpenApp(context.Background(), "Google Chrome")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Google Chrome") {
		t.Errorf("out = %q", out)
	}
	if len(rec.calls) != 1 || rec.calls[0][0] != "osascript" {
		t.Fatalf("calls = %v", rec.calls)
	}
	if !strings.Contains(rec.calls[0][2], `"Google Chrome"`) {
		t.Errorf("script = %q", rec.calls[0][2])
	}
}

func TestMacPlaySongLiteralTitle(t *testing.T) {
	rec := &recordingRunner{}
	mac := NewMac(rec.run)
	if _, err := mac.PlaySong(context.Background(), "Breakup Party"); err != nil {
		t.Fatal(err)
	}
	script := rec.calls[0][2]
	if !strings.Contains(script, `"Breakup Party"`) {
		t.Errorf("script does not carry the literal title: %q", script)
	}
}

func TestMacVolumeRange(t *testing.T) {
	rec := &recordingRunner{}
	mac := NewMac(rec.run)
	if _, err := mac.SetVolume(context.Background(), 130); err == nil {
		t.Error("volume 130 should be rejected")
	}
	if _, err := mac.SetVolume(context.Background(), 30); err != nil {
		t.Errorf("volume 30 rejected: %v", err)
	}
}

func TestMacHotkey(t *testing.T) {
	rec := &recordingRunner{}
	mac := NewMac(rec.run)
	if _, err := mac.Hotkey(context.Background(), "cmd", "shift", "t"); err != nil {
		t.Fatal(err)
	}
	script := rec.calls[0][2]
	if !strings.Contains(script, "command down") || !strings.Contains(script, "shift down") {
		t.Errorf("script = %q", script)
	}
	if _, err := mac.Hotkey(context.Background(), "bogus", "t"); err == nil {
		t.Error("unknown modifier should fail")
	}
}

// scriptedBridge replays canned results in order.
type scriptedBridge struct {
	results []bridge.Result
	errs    []error
	cmds    []bridge.Command
}

func (s *scriptedBridge) Send(_ context.Context, cmd bridge.Command, _ time.Duration) (bridge.Result, error) {
	i := len(s.cmds)
	s.cmds = append(s.cmds, cmd)
	var res bridge.Result
	var err error
	if i < len(s.results) {
		res = s.results[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return res, err
}

func (s *scriptedBridge) Connected() bool { return true }

func (s *scriptedBridge) WaitForConnection(context.Context, time.Duration) error { return nil }

func TestBrowserVerifyText(t *testing.T) {
	sb := &scriptedBridge{results: []bridge.Result{
		{Status: bridge.StatusOK, Data: map[string]any{"text": "Thanks! Your comment was posted."}},
		{Status: bridge.StatusOK, Data: map[string]any{"text": "Thanks! Your comment was posted."}},
	}}
	b := NewBrowser(sb, time.Second)

	out, err := b.VerifyText(context.Background(), "comment was posted")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "✅") {
		t.Errorf("out = %q", out)
	}

	out, err = b.VerifyText(context.Background(), "something else entirely")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "❌") {
		t.Errorf("out = %q", out)
	}
}

func TestBrowserScrollValidation(t *testing.T) {
	sb := &scriptedBridge{results: []bridge.Result{{Status: bridge.StatusOK}}}
	b := NewBrowser(sb, time.Second)
	if _, err := b.Scroll(context.Background(), "sideways", 100); err == nil {
		t.Error("bad direction should fail")
	}
	if _, err := b.Scroll(context.Background(), "down", 300); err != nil {
		t.Fatal(err)
	}
	if sb.cmds[0].Params["amount"] != 300 {
		t.Errorf("params = %v", sb.cmds[0].Params)
	}
}

func TestBrowserErrorStatus(t *testing.T) {
	sb := &scriptedBridge{results: []bridge.Result{{Status: bridge.StatusError, Error: "no such element"}}}
	b := NewBrowser(sb, time.Second)
	if _, err := b.Click(context.Background(), "Submit"); err == nil || !strings.Contains(err.Error(), "no such element") {
		t.Errorf("err = %v", err)
	}
}

func TestMessengerWebMessage(t *testing.T) {
	sb := &scriptedBridge{results: []bridge.Result{
		{Status: bridge.StatusOK},
		{Status: bridge.StatusOK},
		{Status: bridge.StatusOK},
		{Status: bridge.StatusOK},
	}}
	m := NewMessenger(NewMac((&recordingRunner{}).run), NewBrowser(sb, time.Second))

	out, err := m.SendWebMessage(context.Background(), "Aisha", "running late, start without me")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Aisha") || !strings.Contains(out, "running late, start without me") {
		t.Errorf("out = %q", out)
	}

	want := []string{"navigate", "click", "type", "press"}
	if len(sb.cmds) != len(want) {
		t.Fatalf("cmds = %v", sb.cmds)
	}
	for i, action := range want {
		if sb.cmds[i].Action != action {
			t.Errorf("cmd %d = %q, want %q", i, sb.cmds[i].Action, action)
		}
	}
	if url, _ := sb.cmds[0].Params["url"].(string); !strings.Contains(url, "web.whatsapp.com") {
		t.Errorf("navigate url = %v", sb.cmds[0].Params)
	}
	if sb.cmds[2].Params["text"] != "running late, start without me" {
		t.Errorf("typed = %v", sb.cmds[2].Params)
	}
}

func TestMessengerWebMessageChatNotFound(t *testing.T) {
	sb := &scriptedBridge{results: []bridge.Result{
		{Status: bridge.StatusOK},
		{Status: bridge.StatusError, Error: "no such element"},
	}}
	m := NewMessenger(NewMac((&recordingRunner{}).run), NewBrowser(sb, time.Second))
	if _, err := m.SendWebMessage(context.Background(), "Aisha", "hi"); err == nil || !strings.Contains(err.Error(), "Aisha") {
		t.Errorf("err = %v", err)
	}
	if len(sb.cmds) != 2 {
		t.Errorf("cmds after failed click = %v", sb.cmds)
	}
}

func TestMessengerDesktopDelegation(t *testing.T) {
	rec := &recordingRunner{}
	m := NewMessenger(NewMac(rec.run), NewBrowser(&scriptedBridge{}, time.Second))
	out, err := m.SendMessage(context.Background(), "Dad", "happy birthday")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Dad") {
		t.Errorf("out = %q", out)
	}
	if len(rec.calls) != 1 || rec.calls[0][0] != "osascript" {
		t.Fatalf("calls = %v", rec.calls)
	}
}

func TestWorkspaceSandbox(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	ctx := context.Background()

	if _, err := ws.Write(ctx, "notes/a.txt", "hello grep world"); err != nil {
		t.Fatal(err)
	}
	got, err := ws.Read(ctx, "notes/a.txt")
	if err != nil || got != "hello grep world" {
		t.Fatalf("Read = %q, %v", got, err)
	}
	if _, err := ws.Read(ctx, "../../etc/passwd"); err == nil {
		t.Error("path escape should be rejected")
	}

	hits, err := ws.Grep(ctx, ".", "grep w")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(hits, "notes/a.txt:1:") {
		t.Errorf("Grep = %q", hits)
	}
	if _, err := ws.Grep(ctx, ".", "("); err == nil {
		t.Error("bad pattern should fail")
	}
}

func TestWorkspaceGraph(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	ctx := context.Background()

	if _, err := ws.Write(ctx, "main.go", "package main\n\nimport (\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc main() { fmt.Println(os.Args) }\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Write(ctx, "internal/util/util.go", "package util\n\nimport \"strings\"\n\nfunc Up(s string) string { return strings.ToUpper(s) }\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Write(ctx, "README.md", "not go"); err != nil {
		t.Fatal(err)
	}

	out, err := ws.Graph(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ". (1 files)") || !strings.Contains(out, "internal/util (1 files)") {
		t.Errorf("graph = %q", out)
	}
	if !strings.Contains(out, "imports: fmt, os") || !strings.Contains(out, "imports: strings") {
		t.Errorf("graph imports = %q", out)
	}
	if strings.Contains(out, "README") {
		t.Errorf("non-Go file leaked into graph: %q", out)
	}
}

func TestWorkspaceGraphEmpty(t *testing.T) {
	ws := NewWorkspace(t.TempDir())
	out, err := ws.Graph(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No Go files") {
		t.Errorf("out = %q", out)
	}
}

func TestExtractText(t *testing.T) {
	text := extractText(`<html><head><style>.x{}</style></head><body><p>Hello</p><script>junk()</script><p>World</p></body></html>`)
	if !strings.Contains(text, "Hello") || !strings.Contains(text, "World") {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "junk") {
		t.Errorf("script leaked: %q", text)
	}
}
