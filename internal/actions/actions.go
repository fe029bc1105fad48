// Package actions 定义代理可执行的动作面：系统、媒体、设备、消息、视觉、浏览器
// 等接口，以及各自的平台实现。路由器与工具层只依赖这些接口。
// Package actions defines the agent's action surface: system, media, device,
// messaging, vision and browser interfaces plus their platform
// implementations. The router and tool layer depend only on these interfaces.
package actions

import (
	"context"
	"errors"
)

// ErrUnsupported 当前平台或配置不支持该动作。
// ErrUnsupported means the action is not available on this platform or
// configuration.
var ErrUnsupported = errors.New("actions: not supported here")

// System 应用与输入控制。
// System covers application and input control.
type System interface {
	OpenApp(ctx context.Context, name string) (string, error)
	Click(ctx context.Context, element string) (string, error)
	ClickAt(ctx context.Context, x, y int) (string, error)
	Type(ctx context.Context, text string) (string, error)
	Press(ctx context.Context, key string) (string, error)
	Hotkey(ctx context.Context, keys ...string) (string, error)
}

// Media 音乐播放控制。PlaySong 的标题是字面值，绝不转述。
// Media controls music playback. PlaySong's title is literal, never
// paraphrased.
type Media interface {
	PlaySong(ctx context.Context, title string) (string, error)
	Pause(ctx context.Context) (string, error)
	Next(ctx context.Context) (string, error)
	Previous(ctx context.Context) (string, error)
}

// Device 系统设备开关。
// Device toggles system hardware state.
type Device interface {
	SetVolume(ctx context.Context, percent int) (string, error)
	SetWiFi(ctx context.Context, on bool) (string, error)
	SetBluetooth(ctx context.Context, on bool) (string, error)
}

// Messaging 桌面端与网页端消息发送。
// Messaging sends messages via the desktop app or the web client.
type Messaging interface {
	SendMessage(ctx context.Context, contact, message string) (string, error)
	SendWebMessage(ctx context.Context, contact, message string) (string, error)
}

// Vision 基于屏幕内容的定位与点击。
// Vision locates and clicks things by on-screen content.
type Vision interface {
	FindText(ctx context.Context, text string) (string, error)
	FindAndClickText(ctx context.Context, text string) (string, error)
	ScreenCoordinates(ctx context.Context, description string) (string, error)
}

// Pages 无浏览器时的直接抓取回退。
// Pages is the direct-fetch fallback when no browser is attached.
type Pages interface {
	Visit(ctx context.Context, url string) (string, error)
}

// Terminal shell 命令执行。调用方负责先过安全检查。
// Terminal runs shell commands. Callers are responsible for the safety check
// beforehand.
type Terminal interface {
	Run(ctx context.Context, command string) (string, error)
}

// Search 网页搜索。
// Search queries the web.
type Search interface {
	Web(ctx context.Context, query string) (string, error)
}

// Git 仓库操作。
// Git covers repository operations.
type Git interface {
	Status(ctx context.Context, dir string) (string, error)
	Commit(ctx context.Context, dir, message string) (string, error)
}

// Files 工作区文件读写、检索与结构概览。
// Files reads, writes, greps and summarizes workspace files.
type Files interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string) (string, error)
	Grep(ctx context.Context, dir, pattern string) (string, error)
	Graph(ctx context.Context) (string, error)
}

// MCP 外部工具服务器代理。
// MCP proxies an external tool server.
type MCP interface {
	ListTools(ctx context.Context) (string, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// NoMCP 未配置 MCP 服务器时的实现。
// NoMCP is the implementation when no MCP server is configured.
type NoMCP struct{}

func (NoMCP) ListTools(context.Context) (string, error) {
	return "", ErrUnsupported
}

func (NoMCP) CallTool(context.Context, string, map[string]any) (string, error) {
	return "", ErrUnsupported
}
