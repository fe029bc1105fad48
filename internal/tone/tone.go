// Package tone 基于词汇信号的语气/紧迫度启发式分类器，输出注入系统提示的
// 回复风格指令。
// Package tone classifies user messages for urgency/emotional signals with a
// lexical decision tree and yields a response-style directive for prompt
// injection.
package tone

import (
	"strings"
	"unicode"
)

// Directive 分类结果：语气标签与下游回复风格指令。
// Directive is the classification result: a tone label plus the downstream
// response-style instruction.
type Directive struct {
	Tone      string
	Directive string
}

var urgencyWords = []string{"asap", "urgent", "now", "quickly", "fast", "hurry"}

var politenessWords = []string{"please", "thanks", "thank you", "could you", "would you"}

var frustrationWords = []string{"why isn't", "doesn't work", "broken", "failed", "error", "wrong"}

var greetingWords = []string{"hey", "hi", "hello", "good morning", "what's up"}

// Detect 分析消息并返回语气指令；空消息返回零值。
// Detect analyzes a message and returns the tone directive; empty input yields
// the zero value.
func Detect(message string) Directive {
	if message == "" {
		return Directive{}
	}
	lower := strings.ToLower(message)

	length := len(message)
	hasQuestion := strings.Contains(message, "?")
	hasUrgency := containsAny(lower, urgencyWords)
	hasPoliteness := containsAny(lower, politenessWords)
	hasFrustration := containsAny(lower, frustrationWords)
	hasGreeting := containsAny(lower, greetingWords)
	capsRatio := upperRatio(message)

	switch {
	case hasUrgency || (length < 15 && capsRatio > 0.5):
		return Directive{
			Tone:      "URGENT",
			Directive: "User is in a rush. Be EXTREMELY concise — one-line answers preferred. Skip explanations. Act immediately.",
		}
	case hasFrustration:
		return Directive{
			Tone:      "FRUSTRATED",
			Directive: "User seems frustrated. Acknowledge the issue briefly, then provide a clear fix. Avoid filler words.",
		}
	case hasGreeting:
		return Directive{
			Tone:      "CASUAL",
			Directive: "User is being casual. Be warm and friendly. It's okay to be slightly conversational.",
		}
	case hasPoliteness && length > 50:
		return Directive{
			Tone:      "DETAILED",
			Directive: "User is asking thoughtfully. Provide a thorough, well-structured response. Include reasoning.",
		}
	case hasQuestion && length < 30:
		return Directive{
			Tone:      "QUICK_QUESTION",
			Directive: "User has a quick question. Give a direct, precise answer.",
		}
	case length < 10:
		return Directive{
			Tone:      "TERSE",
			Directive: "User is being very brief. Match their energy — respond concisely.",
		}
	default:
		return Directive{
			Tone:      "PROFESSIONAL",
			Directive: "User message is neutral. Respond in a professional, balanced tone.",
		}
	}
}

// PromptBlock 渲染注入系统提示的语气指令块；零值返回空串。
// PromptBlock renders the tone directive block for prompt injection; the zero
// value renders empty.
func (d Directive) PromptBlock() string {
	if d.Directive == "" {
		return ""
	}
	return "## 🎭 TONE DIRECTIVE\n" + d.Directive
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func upperRatio(message string) float64 {
	upper := 0
	for _, r := range message {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	total := len([]rune(message))
	if total == 0 {
		return 0
	}
	return float64(upper) / float64(total)
}
