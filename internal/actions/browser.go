package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"valet/internal/bridge"
)

// Browser 通过桥驱动已连接的浏览器扩展。
// Browser drives the attached browser extension over the bridge.
type Browser struct {
	bridge  bridge.Bridge
	timeout time.Duration
}

func NewBrowser(b bridge.Bridge, timeout time.Duration) *Browser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Browser{bridge: b, timeout: timeout}
}

// Connected 报告扩展是否在线。
// Connected reports whether the extension is attached.
func (b *Browser) Connected() bool { return b.bridge.Connected() }

// WaitForConnection 等待扩展上线。
// WaitForConnection blocks until the extension attaches.
func (b *Browser) WaitForConnection(ctx context.Context, timeout time.Duration) error {
	return b.bridge.WaitForConnection(ctx, timeout)
}

func (b *Browser) send(ctx context.Context, action string, params map[string]any) (bridge.Result, error) {
	res, err := b.bridge.Send(ctx, bridge.Command{Action: action, Params: params}, b.timeout)
	if err != nil {
		return res, err
	}
	if res.Status == bridge.StatusError {
		return res, fmt.Errorf("browser %s: %s", action, res.Error)
	}
	return res, nil
}

func dataString(res bridge.Result, key string) string {
	if v, ok := res.Data[key].(string); ok {
		return v
	}
	return ""
}

func (b *Browser) Navigate(ctx context.Context, url string) (string, error) {
	if _, err := b.send(ctx, "navigate", map[string]any{"url": url}); err != nil {
		return "", err
	}
	return fmt.Sprintf("🌐 Navigated to %s", url), nil
}

func (b *Browser) Screenshot(ctx context.Context) (string, error) {
	res, err := b.send(ctx, "screenshot", nil)
	if err != nil {
		return "", err
	}
	if path := dataString(res, "path"); path != "" {
		return fmt.Sprintf("📸 Screenshot saved to %s", path), nil
	}
	return "📸 Screenshot captured", nil
}

func (b *Browser) Scroll(ctx context.Context, direction string, amount int) (string, error) {
	if direction != "up" && direction != "down" {
		return "", fmt.Errorf("scroll direction %q, want up or down", direction)
	}
	if amount <= 0 {
		amount = 500
	}
	if _, err := b.send(ctx, "scroll", map[string]any{"direction": direction, "amount": amount}); err != nil {
		return "", err
	}
	return fmt.Sprintf("🖱 Scrolled %s %dpx", direction, amount), nil
}

func (b *Browser) Click(ctx context.Context, selector string) (string, error) {
	if _, err := b.send(ctx, "click", map[string]any{"text": selector}); err != nil {
		return "", err
	}
	return fmt.Sprintf("🖱 Clicked %q in browser", selector), nil
}

func (b *Browser) Type(ctx context.Context, selector, text string) (string, error) {
	if _, err := b.send(ctx, "type", map[string]any{"target": selector, "text": text}); err != nil {
		return "", err
	}
	return fmt.Sprintf("⌨️ Typed into %q", selector), nil
}

func (b *Browser) Press(ctx context.Context, key string) (string, error) {
	if _, err := b.send(ctx, "press", map[string]any{"key": key}); err != nil {
		return "", err
	}
	return fmt.Sprintf("⌨️ Pressed %s in browser", key), nil
}

func (b *Browser) GetText(ctx context.Context) (string, error) {
	res, err := b.send(ctx, "get_text", nil)
	if err != nil {
		return "", err
	}
	return dataString(res, "text"), nil
}

// VerifyText 读取页面文本并检查目标串是否出现。结果字符串本身就是核查证据。
// VerifyText reads the page text and checks for the target string. The result
// string is the verification evidence itself.
func (b *Browser) VerifyText(ctx context.Context, expected string) (string, error) {
	text, err := b.GetText(ctx)
	if err != nil {
		return "", err
	}
	if strings.Contains(strings.ToLower(text), strings.ToLower(expected)) {
		return fmt.Sprintf("✅ Verified: page contains %q", expected), nil
	}
	return fmt.Sprintf("❌ Not found on page: %q", expected), nil
}

func (b *Browser) ListTabs(ctx context.Context) (string, error) {
	res, err := b.send(ctx, "list_tabs", nil)
	if err != nil {
		return "", err
	}
	tabs, _ := res.Data["tabs"].([]any)
	if len(tabs) == 0 {
		return "No open tabs reported.", nil
	}
	var lines []string
	for i, t := range tabs {
		tab, _ := t.(map[string]any)
		title, _ := tab["title"].(string)
		url, _ := tab["url"].(string)
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, title, url))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Browser) NewTab(ctx context.Context, url string) (string, error) {
	if _, err := b.send(ctx, "new_tab", map[string]any{"url": url}); err != nil {
		return "", err
	}
	return fmt.Sprintf("🗂 Opened new tab: %s", url), nil
}

func (b *Browser) SwitchTab(ctx context.Context, index int) (string, error) {
	if _, err := b.send(ctx, "switch_tab", map[string]any{"index": index}); err != nil {
		return "", err
	}
	return fmt.Sprintf("🗂 Switched to tab %d", index), nil
}
