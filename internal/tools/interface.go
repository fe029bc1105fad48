// Package tools 把动作面、记忆与目标封装成 LLM 可调用的命名工具。
// Package tools exposes the action surface, memory and goals as named tools
// the LLM executor can invoke.
package tools

import (
	"context"
	"encoding/json"

	"valet/internal/chat"
)

type Tool interface {
	Name() string
	Definition() chat.ToolDef
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}
