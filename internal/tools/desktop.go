package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"valet/internal/actions"
	"valet/internal/safety"
	"valet/internal/session"
)

// DesktopTools 系统、媒体、设备、消息与视觉工具。
// DesktopTools builds the system, media, device, messaging and vision tools.
func DesktopTools(sys actions.System, media actions.Media, dev actions.Device, msg actions.Messaging, vis actions.Vision, sess *session.State) []Tool {
	return []Tool{
		&funcTool{
			name:   "open_app",
			desc:   "Open (activate) a desktop application by name",
			params: objParams(map[string]any{"name": strProp("Application name, e.g. Google Chrome")}, "name"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Name string `json:"name"`
				}](args)
				if err != nil {
					return "", err
				}
				out, err := sys.OpenApp(ctx, in.Name)
				if err != nil {
					return "", err
				}
				sess.UpdateApp(in.Name)
				return out, nil
			},
		},
		&funcTool{
			name:   "click_at",
			desc:   "Click at absolute screen coordinates",
			params: objParams(map[string]any{"x": intProp("X coordinate"), "y": intProp("Y coordinate")}, "x", "y"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					X int `json:"x"`
					Y int `json:"y"`
				}](args)
				if err != nil {
					return "", err
				}
				return sys.ClickAt(ctx, in.X, in.Y)
			},
		},
		&funcTool{
			name:   "type_text",
			desc:   "Type text into the focused element of the active app, verbatim",
			params: objParams(map[string]any{"text": strProp("Text to type, sent exactly as given")}, "text"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Text string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				return sys.Type(ctx, in.Text)
			},
		},
		&funcTool{
			name:   "press_key",
			desc:   "Press a single key (enter, tab, escape, arrows) in the active app",
			params: objParams(map[string]any{"key": strProp("Key name")}, "key"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Key string `json:"key"`
				}](args)
				if err != nil {
					return "", err
				}
				return sys.Press(ctx, in.Key)
			},
		},
		&funcTool{
			name:   "hotkey",
			desc:   "Press a key combination, e.g. [\"cmd\",\"shift\",\"t\"]",
			params: objParams(map[string]any{"keys": map[string]any{"type": "array", "items": map[string]any{"type": "string"}}}, "keys"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Keys []string `json:"keys"`
				}](args)
				if err != nil {
					return "", err
				}
				return sys.Hotkey(ctx, in.Keys...)
			},
		},
		&funcTool{
			name: "music_control",
			desc: "Control music playback. action is one of play/pause/next/previous; song is the EXACT literal title for play, never a substitute",
			params: objParams(map[string]any{
				"action": strProp("play, pause, next or previous"),
				"song":   strProp("Literal song title, required for play"),
			}, "action"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Action string `json:"action"`
					Song   string `json:"song"`
				}](args)
				if err != nil {
					return "", err
				}
				switch in.Action {
				case "play":
					if in.Song == "" {
						return "", fmt.Errorf("music_control: play needs a song title")
					}
					return media.PlaySong(ctx, in.Song)
				case "pause":
					return media.Pause(ctx)
				case "next":
					return media.Next(ctx)
				case "previous":
					return media.Previous(ctx)
				}
				return "", fmt.Errorf("music_control: unknown action %q", in.Action)
			},
		},
		&funcTool{
			name:   "set_volume",
			desc:   "Set system output volume, 0-100",
			params: objParams(map[string]any{"percent": intProp("Volume percent 0-100")}, "percent"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Percent int `json:"percent"`
				}](args)
				if err != nil {
					return "", err
				}
				return dev.SetVolume(ctx, in.Percent)
			},
		},
		&funcTool{
			name:   "toggle_radio",
			desc:   "Turn wifi or bluetooth on/off",
			params: objParams(map[string]any{"radio": strProp("wifi or bluetooth"), "on": map[string]any{"type": "boolean"}}, "radio", "on"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Radio string `json:"radio"`
					On    bool   `json:"on"`
				}](args)
				if err != nil {
					return "", err
				}
				switch in.Radio {
				case "wifi":
					return dev.SetWiFi(ctx, in.On)
				case "bluetooth":
					return dev.SetBluetooth(ctx, in.On)
				}
				return "", fmt.Errorf("toggle_radio: unknown radio %q", in.Radio)
			},
		},
		&funcTool{
			name: "send_message",
			desc: "Send a message to a contact via the desktop messaging app. The message text is sent verbatim",
			params: objParams(map[string]any{
				"contact": strProp("Contact name"),
				"message": strProp("Message text, sent exactly as given"),
			}, "contact", "message"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Contact string `json:"contact"`
					Message string `json:"message"`
				}](args)
				if err != nil {
					return "", err
				}
				return msg.SendMessage(ctx, in.Contact, in.Message)
			},
		},
		&funcTool{
			name:   "find_text_on_screen",
			desc:   "Locate visible text on screen and report its position",
			params: objParams(map[string]any{"text": strProp("Text to find")}, "text"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Text string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				return vis.FindText(ctx, in.Text)
			},
		},
		&funcTool{
			name:   "find_and_click_text_on_screen",
			desc:   "Locate visible text on screen and click it",
			params: objParams(map[string]any{"text": strProp("Text to click")}, "text"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Text string `json:"text"`
				}](args)
				if err != nil {
					return "", err
				}
				return vis.FindAndClickText(ctx, in.Text)
			},
		},
		&funcTool{
			name:   "get_screen_coordinates",
			desc:   "Resolve a described on-screen element to coordinates",
			params: objParams(map[string]any{"description": strProp("Element description")}, "description"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Description string `json:"description"`
				}](args)
				if err != nil {
					return "", err
				}
				return vis.ScreenCoordinates(ctx, in.Description)
			},
		},
	}
}

// ShellTools 终端与搜索工具。每条命令执行前先过安全校验。
// ShellTools builds the terminal and search tools. Every command passes the
// safety validator before running.
func ShellTools(term actions.Terminal, search actions.Search) []Tool {
	return []Tool{
		&funcTool{
			name:   "run_terminal",
			desc:   "Run a shell command and return its output",
			params: objParams(map[string]any{"command": strProp("Shell command")}, "command"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Command string `json:"command"`
				}](args)
				if err != nil {
					return "", err
				}
				if reason := safety.ValidateCommand(in.Command); reason != "" {
					return reason, nil
				}
				return term.Run(ctx, in.Command)
			},
		},
		&funcTool{
			name:   "web_search",
			desc:   "Search the web and return top result links",
			params: objParams(map[string]any{"query": strProp("Search query")}, "query"),
			run: func(ctx context.Context, args json.RawMessage) (string, error) {
				in, err := decode[struct {
					Query string `json:"query"`
				}](args)
				if err != nil {
					return "", err
				}
				return search.Web(ctx, in.Query)
			},
		},
	}
}
