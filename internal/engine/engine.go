// Package engine 驱动 LLM 升级路径：注入上下文块、运行工具循环、事后核查
// 结果并记录事件与情景。
// Package engine drives the LLM escalation path: it injects context blocks,
// runs the tool loop, vets the result post-hoc, and records events and
// episodes.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"valet/internal/chat"
	"valet/internal/goals"
	"valet/internal/memory"
	"valet/internal/provider"
	"valet/internal/session"
	"valet/internal/tokencount"
	"valet/internal/tone"
	"valet/internal/tools"
	"valet/internal/verify"
)

// ErrInterrupted 用户取消了本轮执行。
// ErrInterrupted means the user cancelled the in-flight turn.
var ErrInterrupted = errors.New("engine: interrupted")

const systemPrompt = `You are Valet, a personal desktop assistant. You control the user's
machine through the provided tools.

Rules:
- Song titles, message text and contact names are LITERAL. Never substitute,
  rephrase or "improve" them.
- After sending a message, posting a comment, or changing a page, verify the
  result with chrome_verify_text or a screen-reading tool before claiming
  success.
- If a step fails, say so. Do not claim success you have not observed.`

const codingPrompt = `You are Valet in coding mode: a focused pair programmer working in the
user's workspace.

Rules:
- Prefer read_file, grep_files, write_file, run_terminal and git tools.
- Show the exact commands and diffs you applied. Keep prose minimal.
- If a step fails, say so. Do not claim success you have not observed.`

// Engine LLM 执行引擎。
// Engine is the LLM execution engine.
type Engine struct {
	provider    provider.Provider
	registry    *tools.Registry
	sess        *session.State
	store       *memory.Store
	goals       *goals.Manager
	recall      *memory.Assembler
	tokenizer   *tokencount.Tokenizer
	maxSteps    int
	sessionID   string
	autoDistill bool
	recallOn    bool
}

// Options Engine 依赖与开关。
// Options carries the engine's collaborators and switches.
type Options struct {
	Provider    provider.Provider
	Registry    *tools.Registry
	Session     *session.State
	Store       *memory.Store
	Goals       *goals.Manager
	Recall      *memory.Assembler
	Tokenizer   *tokencount.Tokenizer
	MaxSteps    int
	SessionID   string
	AutoDistill bool
	RecallOn    bool
}

func New(opts Options) *Engine {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 12
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokencount.Default()
	}
	return &Engine{
		provider:    opts.Provider,
		registry:    opts.Registry,
		sess:        opts.Session,
		store:       opts.Store,
		goals:       opts.Goals,
		recall:      opts.Recall,
		tokenizer:   opts.Tokenizer,
		maxSteps:    opts.MaxSteps,
		sessionID:   opts.SessionID,
		autoDistill: opts.AutoDistill,
		recallOn:    opts.RecallOn,
	}
}

func toneBlock(task string) string {
	return tone.Detect(task).PromptBlock()
}

// buildSystemPrompt 组装系统提示：人设 + 会话/语气/指代/目标/记忆上下文块。
// buildSystemPrompt assembles the system prompt: persona plus the
// session/tone/coreference/goal/memory context blocks.
func (e *Engine) buildSystemPrompt(task string) string {
	persona := systemPrompt
	if e.sess.Mode() == session.ModeCoding {
		persona = codingPrompt
	}
	blocks := []string{persona}
	appendBlock := func(b string) {
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	appendBlock(e.sess.PromptBlock())
	appendBlock(e.sess.ReferenceHint(task))
	appendBlock(e.sess.UIReferenceHint(task))
	appendBlock(toneBlock(task))
	if e.goals != nil {
		appendBlock(e.goals.PromptBlock())
	}
	if e.recallOn && e.recall != nil {
		if block, err := e.recall.Build(task); err == nil {
			appendBlock(block)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// logEvent 持久化失败只降级不致命：回答仍然要送达用户。
// logEvent treats persistence failure as non-fatal: the reply must still reach
// the user.
func (e *Engine) logEvent(kind, content string) {
	if e.store == nil {
		return
	}
	_ = e.store.AddEvent(e.sessionID, kind, content)
}

// Run 处理一个升级到 LLM 的任务，返回核查后的最终回答。
// Run processes one task escalated to the LLM and returns the vetted final
// answer.
func (e *Engine) Run(ctx context.Context, task string) (string, error) {
	e.logEvent("user_msg", task)
	resolved := e.sess.ResolveTask(task)

	messages := []chat.Message{
		{Role: "system", Content: e.buildSystemPrompt(task)},
		{Role: "user", Content: resolved},
	}
	defs := e.registry.Definitions()

	var trace []verify.Step
	for step := 0; step < e.maxSteps; step++ {
		if e.sess.InterruptRequested() {
			e.sess.ClearInterrupt()
			e.logEvent("agent_error", "interrupted")
			return "", ErrInterrupted
		}

		resp, err := e.provider.Chat(ctx, messages, defs)
		if err != nil {
			e.logEvent("agent_error", err.Error())
			return "", fmt.Errorf("escalation: %w", err)
		}
		e.recordUsage(messages, resp)

		if len(resp.Message.ToolCalls) == 0 {
			answer := verify.AdjustFinalAnswer(resp.Message.Content, trace, task, e.sess)
			e.finishTurn(task, answer)
			return answer, nil
		}

		messages = append(messages, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			out, err := e.registry.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			st := verify.Step{
				Tools:       []string{call.Function.Name},
				Code:        call.Function.Arguments,
				Err:         err,
				Observation: out,
			}
			trace = append(trace, st)
			e.sess.UpdateTool(call.Function.Name)
			content := out
			if err != nil {
				content = "❌ " + err.Error()
			}
			messages = append(messages, chat.Message{
				Role:       "tool",
				Content:    content,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	answer := "⚠️ I ran out of steps before finishing. Here is what happened:" + verify.BuildEvidence(trace)
	e.finishTurn(task, answer)
	return answer, nil
}

func (e *Engine) recordUsage(messages []chat.Message, resp provider.Response) {
	in, out := resp.Usage.InputTokens, resp.Usage.OutputTokens
	if in == 0 && out == 0 {
		// Backend reported no usage: estimate locally.
		for _, m := range messages {
			in += e.tokenizer.Count(m.Content)
		}
		out = e.tokenizer.Count(resp.Message.Content)
	}
	e.sess.UpdateTokens(in, out)
}

func (e *Engine) finishTurn(task, answer string) {
	e.sess.UpdateTask(task)
	e.logEvent("agent_result", answer)
	if e.store == nil {
		return
	}
	summary := task
	// Cut on a rune boundary so a multibyte task never yields broken UTF-8.
	if r := []rune(summary); len(r) > 120 {
		summary = string(r[:120])
	}
	_ = e.store.AddEpisode(e.sessionID, summary)
	if e.autoDistill {
		_, _ = memory.DistillAndStore(e.store, e.sessionID, task)
	}
}
