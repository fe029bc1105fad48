// Package provider 封装 LLM 后端。执行引擎只依赖 Provider 接口，测试时注入
// 假实现。
// Package provider wraps the LLM backend. The engine depends only on the
// Provider interface; tests inject a fake.
package provider

import (
	"context"

	"valet/internal/chat"
)

// Usage 单次调用的 token 用量。
// Usage is the token usage of one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response 一次补全的结果：文本回复或工具调用请求。
// Response is one completion: either a text reply or tool call requests.
type Response struct {
	Message chat.Message
	Usage   Usage
}

// Provider LLM 后端接口。
// Provider is the LLM backend interface.
type Provider interface {
	Chat(ctx context.Context, messages []chat.Message, tools []chat.ToolDef) (Response, error)
}
