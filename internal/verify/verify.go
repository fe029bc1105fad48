// Package verify 事后核查执行轨迹：当任务类别容易静默失败（发消息、改网页
// DOM）而轨迹中没有核实证据时，降级未经证实的成功声明。
// Package verify performs post-hoc inspection of the action trace: when the
// task category is prone to silent failure (messaging, browser DOM mutation)
// and the trace carries no verification evidence, an unverified success claim
// gets downgraded.
package verify

import (
	"fmt"
	"strings"

	"valet/internal/session"
)

// Step 执行轨迹中的一步：调用的工具名、执行的代码/命令、错误与观察输出。
// Step is one entry of the action trace: tool names invoked, code or command
// executed, error, and free-text observation.
type Step struct {
	Tools       []string
	Code        string
	Err         error
	Observation string
}

// successMarkers 只有声称成功的回答才会被降级。
// successMarkers: only answers claiming success are subject to downgrade.
var successMarkers = []string{
	"success", "done", "completed", "sent", "opened", "playing", "shared",
	"posted", "finished", "✅",
}

// errorMarkers 轨迹观察文本中的失败标记。
// errorMarkers flag failure in trace observations.
var errorMarkers = []string{"❌", "Timeout", "Error", "Browser Error"}

// strictKeywords 要求严格核实的任务类别。
// strictKeywords mark task categories that require strict verification.
var strictKeywords = []string{"comment", "message", "dm", "share", "send"}

// uiMarkers 结合已知活跃应用时同样要求严格核实。
// uiMarkers, combined with a known active app, also require strict
// verification.
var uiMarkers = []string{"top section", "bottom section", "left side", "right side", "on screen", "song", "track"}

// browserKeywords 浏览器类任务要求任意核实调用。
// browserKeywords mark browser tasks, which require any verification call.
var browserKeywords = []string{"browser", "chrome", "tab", "website", "page", "url", ".com", ".org"}

// strictVerifyCalls 算作严格核实证据的工具名。
// strictVerifyCalls are the tool names counted as strict verification
// evidence.
var strictVerifyCalls = map[string]bool{
	"chrome_verify_text":            true,
	"find_text_on_screen":           true,
	"find_and_click_text_on_screen": true,
	"get_screen_coordinates":        true,
}

// anyVerifyCalls 算作一般核实证据的工具名，严格核实调用也计入。
// anyVerifyCalls are tool names counted as generic verification evidence;
// strict calls count too.
var anyVerifyCalls = map[string]bool{
	"chrome_get_text":    true,
	"chrome_screenshot":  true,
	"chrome_list_tabs":   true,
	"chrome_verify_text": true,
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func traceHasError(trace []Step) bool {
	for _, s := range trace {
		if s.Err != nil {
			return true
		}
		for _, m := range errorMarkers {
			if strings.Contains(s.Observation, m) {
				return true
			}
		}
	}
	return false
}

func traceHasCall(trace []Step, set map[string]bool) bool {
	for _, s := range trace {
		for _, name := range s.Tools {
			if set[name] {
				return true
			}
		}
	}
	return false
}

// isStrictTask 调用方传入已小写的任务文本。
// isStrictTask expects the task text already lowercased.
func isStrictTask(lowerTask string, sess *session.State) bool {
	if containsAny(lowerTask, strictKeywords) {
		return true
	}
	return sess != nil && sess.LastApp() != "" && containsAny(lowerTask, uiMarkers)
}

func isBrowserTask(lowerTask string, sess *session.State) bool {
	if containsAny(lowerTask, browserKeywords) {
		return true
	}
	return sess != nil && (sess.LastSite() != "" || sess.LastURL() != "")
}

// whereToCheck 提示用户去哪里人工确认。
// whereToCheck tells the user where to confirm by hand.
func whereToCheck(sess *session.State) string {
	if sess == nil {
		return ""
	}
	if site := sess.LastSite(); site != "" {
		return fmt.Sprintf(" Please check %s to confirm.", site)
	}
	if url := sess.LastURL(); url != "" {
		return fmt.Sprintf(" Please check %s to confirm.", url)
	}
	return ""
}

// AdjustFinalAnswer 核查声称成功的回答。错误永远压倒成功声明；严格类任务要求
// 轨迹中有严格核实调用，浏览器类任务要求任意核实调用，证据缺失时降级为
// 谨慎表述。非成功声明与普通任务原样返回。
// AdjustFinalAnswer vets a claimed-success answer. Errors always override the
// claim; strict tasks require a strict verification call in the trace and
// browser tasks require any verification call, with missing evidence
// downgrading the answer to a cautionary one. Non-success answers and plain
// tasks pass through unchanged.
func AdjustFinalAnswer(answer string, trace []Step, task string, sess *session.State) string {
	lowerAnswer := strings.ToLower(answer)
	if !containsAny(lowerAnswer, successMarkers) {
		return answer
	}

	if traceHasError(trace) {
		return "⚠️ I ran the steps but an error occurred along the way, so I can't confirm the result." + whereToCheck(sess) + BuildEvidence(trace)
	}

	lowerTask := strings.ToLower(task)
	strict := isStrictTask(lowerTask, sess)
	browser := isBrowserTask(lowerTask, sess)

	if strict && !traceHasCall(trace, strictVerifyCalls) {
		return "⚠️ I ran the steps but couldn't verify the outcome on screen, so I won't claim success." + whereToCheck(sess)
	}
	if browser && !traceHasCall(trace, strictVerifyCalls) && !traceHasCall(trace, anyVerifyCalls) {
		return "⚠️ I ran the steps but couldn't verify the page state afterwards." + whereToCheck(sess)
	}
	return answer
}

// BuildEvidence 汇总轨迹末尾的观察输出，最多 8 行。
// BuildEvidence collects the trailing observation output, at most 8 lines.
func BuildEvidence(trace []Step) string {
	var lines []string
	for _, s := range trace {
		for _, line := range strings.Split(strings.TrimSpace(s.Observation), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}
	if len(lines) > 8 {
		lines = lines[len(lines)-8:]
	}
	return "\n\nLast observations:\n" + strings.Join(lines, "\n")
}
