// Package bridge 定义与外部执行器（浏览器扩展 / 系统自动化面）的同步命令通道契约。
// 传输层在别处实现；核心只依赖这里的接口与错误分类。
// Package bridge defines the synchronous command channel contract to an
// external actuator (browser extension / OS automation surface). Transport is
// implemented elsewhere; the core depends only on this interface and its error
// taxonomy.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"
)

// 状态字面量与扩展协议保持一致。
// Status literals match the extension protocol.
const (
	StatusOK           = "ok"
	StatusError        = "error"
	StatusAuthRequired = "auth_required"
)

var (
	// ErrDisconnected 执行器未连接。可恢复：导航类请求回退到直接抓取。
	// ErrDisconnected means no actuator is connected. Recoverable: navigation
	// requests fall back to a direct page fetch.
	ErrDisconnected = errors.New("bridge: not connected")

	// ErrTimeout 命令超时，与一般错误区分，调用方据此决定重试或放弃。
	// ErrTimeout means the command exceeded its deadline. Reported distinctly
	// from generic errors so callers can decide retry vs. abandon.
	ErrTimeout = errors.New("bridge: command timed out")

	// ErrAuthRequired 执行器在等待用户完成认证；在显式恢复前拒绝一切命令。
	// ErrAuthRequired means the actuator is waiting for the user to finish an
	// auth flow; all commands are refused until explicitly resumed.
	ErrAuthRequired = errors.New("bridge: waiting for user authentication")
)

// Command 发往执行器的单条命令。
// Command is a single command sent to the actuator.
type Command struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Result 执行器返回的结果。
// Result is the actuator's reply.
type Result struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Bridge 同步命令通道。Send 阻塞调用线程直至结果返回或超时。
// Bridge is the synchronous command channel. Send blocks the calling thread
// until a result arrives or the timeout elapses.
type Bridge interface {
	Send(ctx context.Context, cmd Command, timeout time.Duration) (Result, error)
	Connected() bool
	WaitForConnection(ctx context.Context, timeout time.Duration) error
}

// Unavailable 无执行器时的空实现：所有命令返回 ErrDisconnected。
// Unavailable is the no-actuator implementation: every command reports
// ErrDisconnected.
type Unavailable struct{}

func (Unavailable) Send(context.Context, Command, time.Duration) (Result, error) {
	return Result{}, ErrDisconnected
}

func (Unavailable) Connected() bool { return false }

func (Unavailable) WaitForConnection(context.Context, time.Duration) error {
	return ErrDisconnected
}

// AuthGate 包装一个 Bridge：一旦某条结果返回 auth_required，在 Resume 被调用前
// 挂起全部后续命令。
// AuthGate wraps a Bridge: once any result reports auth_required, every
// further command is suspended until Resume is called.
type AuthGate struct {
	inner Bridge

	mu      sync.Mutex
	waiting bool
}

func NewAuthGate(inner Bridge) *AuthGate {
	return &AuthGate{inner: inner}
}

func (g *AuthGate) Send(ctx context.Context, cmd Command, timeout time.Duration) (Result, error) {
	g.mu.Lock()
	waiting := g.waiting
	g.mu.Unlock()
	if waiting {
		return Result{}, ErrAuthRequired
	}

	res, err := g.inner.Send(ctx, cmd, timeout)
	if err != nil {
		return res, err
	}
	if res.Status == StatusAuthRequired {
		g.mu.Lock()
		g.waiting = true
		g.mu.Unlock()
		return res, ErrAuthRequired
	}
	return res, nil
}

func (g *AuthGate) Connected() bool { return g.inner.Connected() }

func (g *AuthGate) WaitForConnection(ctx context.Context, timeout time.Duration) error {
	return g.inner.WaitForConnection(ctx, timeout)
}

// Waiting 返回是否处于认证挂起状态。
// Waiting reports whether the gate is suspended on authentication.
func (g *AuthGate) Waiting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

// Resume 用户完成认证后恢复命令通道（"continue after auth"）。
// Resume re-opens the channel after the user finishes authentication
// ("continue after auth").
func (g *AuthGate) Resume() {
	g.mu.Lock()
	g.waiting = false
	g.mu.Unlock()
}
