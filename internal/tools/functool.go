package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"valet/internal/chat"
)

// funcTool 用闭包实现的工具，省去每个工具一个结构体的样板。
// funcTool implements Tool with a closure, avoiding one struct per tool.
type funcTool struct {
	name   string
	desc   string
	params map[string]any
	run    func(ctx context.Context, args json.RawMessage) (string, error)
}

func (t *funcTool) Name() string { return t.name }

func (t *funcTool) Definition() chat.ToolDef {
	params := t.params
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return chat.ToolDef{
		Type: "function",
		Function: chat.ToolFunction{
			Name:        t.name,
			Description: t.desc,
			Parameters:  params,
		},
	}
}

func (t *funcTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return t.run(ctx, args)
}

// objParams 构造一个对象 schema。required 为空表示全部可选。
// objParams builds an object schema. An empty required list means all
// properties are optional.
func objParams(props map[string]any, required ...string) map[string]any {
	p := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		p["required"] = required
	}
	return p
}

func strProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func intProp(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("bad arguments: %w", err)
	}
	return v, nil
}
