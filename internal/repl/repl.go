// Package repl 交互式循环：读取输入，先走确定性路由，未命中再升级到 LLM 引擎,
// 渲染结果并保证任何一轮崩溃都不终止会话。
// Package repl is the interactive loop: read input, try deterministic routing
// first, escalate to the LLM engine on a miss, render the result, and survive
// any single turn's crash.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"

	"valet/internal/bridge"
	"valet/internal/engine"
	"valet/internal/router"
	"valet/internal/session"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Loop REPL 状态。
// Loop holds REPL state.
type Loop struct {
	router   *router.Router
	engine   *engine.Engine
	sess     *session.State
	gate     *bridge.AuthGate
	renderer *glamour.TermRenderer
	out      io.Writer
}

func NewLoop(r *router.Router, e *engine.Engine, sess *session.State, gate *bridge.AuthGate, out io.Writer) *Loop {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}
	return &Loop{router: r, engine: e, sess: sess, gate: gate, renderer: renderer, out: out}
}

func (l *Loop) render(text string) string {
	if l.renderer == nil {
		return text
	}
	rendered, err := l.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func (l *Loop) banner() {
	fmt.Fprintln(l.out, bannerStyle.Render("valet"))
	fmt.Fprintln(l.out, hintStyle.Render("Your desktop, on command. Type a request, or exit to quit."))
}

// handleTurn 单轮处理。panic 被捕获转为错误输出，长会话必须挺过任何一轮崩溃。
// handleTurn processes one turn. Panics are recovered into an error line; a
// long-running session must survive any single turn's crash.
func (l *Loop) handleTurn(ctx context.Context, text string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(l.out, errStyle.Render(fmt.Sprintf("✗ turn failed: %v", r)))
		}
	}()

	if out, ok := l.router.TryHandle(ctx, text); ok {
		fmt.Fprintln(l.out, out)
		return
	}

	out, err := l.engine.Run(ctx, text)
	switch {
	case errors.Is(err, engine.ErrInterrupted):
		fmt.Fprintln(l.out, hintStyle.Render("⏹ interrupted"))
	case errors.Is(err, bridge.ErrAuthRequired):
		fmt.Fprintln(l.out, "🔐 Waiting for you to finish signing in. Say \"continue\" when done.")
	case err != nil:
		fmt.Fprintln(l.out, errStyle.Render("✗ "+err.Error()))
	default:
		fmt.Fprintln(l.out, l.render(out))
	}
}

// Run 运行 REPL 直到 EOF 或 exit。执行期间终端处于普通模式，Ctrl+C 以 SIGINT
// 送达，这里把它映射为协作式中断标志，由引擎在下一步轮询到后中止本轮。
// Run drives the REPL until EOF or exit. While a turn is executing the
// terminal is in cooked mode and Ctrl+C arrives as SIGINT; it is mapped onto
// the cooperative interrupt flag, which the engine polls on its next step.
func (l *Loop) Run(ctx context.Context) error {
	l.banner()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			l.sess.RequestInterrupt()
		}
	}()

	rl, err := readline.New("")
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for {
		// A stale flag from a signal that landed after the previous turn
		// finished must not abort the next one.
		l.sess.ClearInterrupt()

		rl.SetPrompt(hintStyle.Render(l.sess.UsageString()) + "\n> ")
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C at the prompt: nothing is in flight, just re-prompt.
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		switch lower := strings.ToLower(text); lower {
		case "exit", "quit":
			fmt.Fprintln(l.out, hintStyle.Render("bye"))
			return nil
		case "continue", "resume":
			if l.gate != nil && l.gate.Waiting() {
				l.gate.Resume()
				fmt.Fprintln(l.out, "🔓 Resumed, picking up where we left off.")
				continue
			}
		case "mode":
			fmt.Fprintln(l.out, hintStyle.Render("mode: "+string(l.sess.Mode())))
			continue
		case "mode coding", "mode default":
			mode := session.Mode(strings.TrimPrefix(lower, "mode "))
			l.sess.SetMode(mode)
			fmt.Fprintln(l.out, hintStyle.Render("mode: "+string(mode)))
			continue
		}
		l.handleTurn(ctx, text)
	}
}
