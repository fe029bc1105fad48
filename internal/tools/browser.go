package tools

import (
	"context"
	"encoding/json"

	"valet/internal/actions"
	"valet/internal/session"
)

// BrowserTools 浏览器桥工具与直接抓取回退。chrome_navigate 成功后更新会话
// 跟踪的站点。
// BrowserTools builds the browser-bridge tools plus the direct-fetch
// fallback. chrome_navigate updates the tracked site on success.
func BrowserTools(browser *actions.Browser, pages actions.Pages, sess *session.State) []Tool {
	return []Tool{
		&funcTool{
			name:   "chrome_navigate",
			desc:   "Navigate the attached browser to a URL",
			params: objParams(map[string]any{"url": strProp("Destination URL")}, "url"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					URL string `json:"url"`
				}](args)
				if err != nil {
					return "", err
				}
				out, err := browser.Navigate(ctx, in.URL)
				if err != nil {
					return "", err
				}
				sess.UpdateBrowser(in.URL, "")
				return out, nil
			},
		},
		&funcTool{
			name: "chrome_screenshot",
			desc: "Capture a screenshot of the current browser tab",
			run: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return browser.Screenshot(ctx)
			},
		},
		&funcTool{
			name:   "chrome_scroll",
			desc:   "Scroll the current tab up or down by an amount in pixels",
			params: objParams(map[string]any{"direction": strProp("up or down"), "amount": intProp("Pixels, default 500")}, "direction"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Direction string `json:"direction"`
					Amount    int    `json:"amount"`
				}](args)
				if err != nil {
					return "", err
				}
				return browser.Scroll(ctx, in.Direction, in.Amount)
			},
		},
		&funcTool{
			name:   "chrome_click",
			desc:   "Click an element in the current tab by its visible text",
			params: objParams(map[string]any{"text": strProp("Visible element text")}, "text"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Text string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				return browser.Click(ctx, in.Text)
			},
		},
		&funcTool{
			name:   "chrome_type",
			desc:   "Type text into a field in the current tab",
			params: objParams(map[string]any{"target": strProp("Field label or placeholder"), "text": strProp("Text to type")}, "text"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Target string `json:"target"`
					Text   string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				return browser.Type(ctx, in.Target, in.Text)
			},
		},
		&funcTool{
			name:   "chrome_press",
			desc:   "Press a key in the current tab",
			params: objParams(map[string]any{"key": strProp("Key name, e.g. enter")}, "key"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Key string `json:"key"`
				}](args)
				if err != nil {
					return "", err
				}
				return browser.Press(ctx, in.Key)
			},
		},
		&funcTool{
			name: "chrome_get_text",
			desc: "Read the visible text of the current tab",
			run: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return browser.GetText(ctx)
			},
		},
		&funcTool{
			name:   "chrome_verify_text",
			desc:   "Verify that the current tab contains the given text. Use after any action whose success must be confirmed",
			params: objParams(map[string]any{"text": strProp("Text expected on the page")}, "text"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Text string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				return browser.VerifyText(ctx, in.Text)
			},
		},
		&funcTool{
			name: "chrome_list_tabs",
			desc: "List open browser tabs",
			run: func(ctx context.Context, _ json.RawMessage) (string, error) {
				return browser.ListTabs(ctx)
			},
		},
		&funcTool{
			name:   "chrome_new_tab",
			desc:   "Open a URL in a new browser tab",
			params: objParams(map[string]any{"url": strProp("Destination URL")}, "url"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					URL string `json:"url"`
				}](args)
				if err != nil {
					return "", err
				}
				out, err := browser.NewTab(ctx, in.URL)
				if err != nil {
					return "", err
				}
				sess.UpdateBrowser(in.URL, "")
				return out, nil
			},
		},
		&funcTool{
			name:   "chrome_switch_tab",
			desc:   "Switch to a browser tab by index",
			params: objParams(map[string]any{"index": intProp("1-based tab index")}, "index"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Index int `json:"index"`
				}](args)
				if err != nil {
					return "", err
				}
				return browser.SwitchTab(ctx, in.Index)
			},
		},
		&funcTool{
			name:   "visit_page",
			desc:   "Fetch a web page directly and return its text (works without the browser)",
			params: objParams(map[string]any{"url": strProp("Page URL")}, "url"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					URL string `json:"url"`
				}](args)
				if err != nil {
					return "", err
				}
				out, err := pages.Visit(ctx, in.URL)
				if err != nil {
					return "", err
				}
				sess.UpdateBrowser(in.URL, "")
				return out, nil
			},
		},
	}
}
