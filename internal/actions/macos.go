package actions

import (
	"context"
	"fmt"
	"strings"
)

// Runner 执行一个外部命令并返回标准输出。抽出来便于测试替换。
// Runner executes an external command and returns stdout. Factored out so
// tests can swap it.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

// Mac 通过 osascript 驱动 macOS 的动作实现，覆盖 System/Media/Device/Vision
// 四个接口，并提供 Messages.app 的本地发送。
// Mac drives macOS through osascript and implements the System, Media,
// Device and Vision interfaces, plus native sending via Messages.app.
type Mac struct {
	run Runner
}

func NewMac(run Runner) *Mac {
	return &Mac{run: run}
}

func (m *Mac) osascript(ctx context.Context, script string) (string, error) {
	return m.run(ctx, "osascript", "-e", script)
}

// appleQuote AppleScript 字符串字面量转义。
// appleQuote escapes a string for an AppleScript literal.
func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func (m *Mac) OpenApp(ctx context.Context, name string) (string, error) {
	if _, err := m.osascript(ctx, fmt.Sprintf(`tell application %s to activate`, appleQuote(name))); err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	return fmt.Sprintf("🚀 Opened %s", name), nil
}

func (m *Mac) Click(ctx context.Context, element string) (string, error) {
	script := fmt.Sprintf(
		`tell application "System Events" to click (first UI element whose name is %s) of front window of (first process whose frontmost is true)`,
		appleQuote(element))
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("click %q: %w", element, err)
	}
	return fmt.Sprintf("🖱 Clicked %q", element), nil
}

func (m *Mac) ClickAt(ctx context.Context, x, y int) (string, error) {
	script := fmt.Sprintf(`tell application "System Events" to click at {%d, %d}`, x, y)
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("click at (%d,%d): %w", x, y, err)
	}
	return fmt.Sprintf("🖱 Clicked at (%d, %d)", x, y), nil
}

func (m *Mac) Type(ctx context.Context, text string) (string, error) {
	script := fmt.Sprintf(`tell application "System Events" to keystroke %s`, appleQuote(text))
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("type text: %w", err)
	}
	return fmt.Sprintf("⌨️ Typed %q", text), nil
}

// keyCodes 常用非字符键的 macOS 键码。
// keyCodes maps common non-character keys to macOS key codes.
var keyCodes = map[string]int{
	"enter": 36, "return": 36, "tab": 48, "space": 49, "escape": 53, "esc": 53,
	"delete": 51, "up": 126, "down": 125, "left": 123, "right": 124,
}

func (m *Mac) Press(ctx context.Context, key string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(key))
	var script string
	if code, ok := keyCodes[lower]; ok {
		script = fmt.Sprintf(`tell application "System Events" to key code %d`, code)
	} else {
		script = fmt.Sprintf(`tell application "System Events" to keystroke %s`, appleQuote(lower))
	}
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("press %q: %w", key, err)
	}
	return fmt.Sprintf("⌨️ Pressed %s", lower), nil
}

var modifierNames = map[string]string{
	"cmd": "command down", "command": "command down",
	"ctrl": "control down", "control": "control down",
	"alt": "option down", "option": "option down",
	"shift": "shift down",
}

func (m *Mac) Hotkey(ctx context.Context, keys ...string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("hotkey: no keys")
	}
	var mods []string
	main := keys[len(keys)-1]
	for _, k := range keys[:len(keys)-1] {
		mod, ok := modifierNames[strings.ToLower(k)]
		if !ok {
			return "", fmt.Errorf("hotkey: unknown modifier %q", k)
		}
		mods = append(mods, mod)
	}
	script := fmt.Sprintf(`tell application "System Events" to keystroke %s`, appleQuote(strings.ToLower(main)))
	if len(mods) > 0 {
		script += " using {" + strings.Join(mods, ", ") + "}"
	}
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("hotkey %v: %w", keys, err)
	}
	return fmt.Sprintf("⌨️ Pressed %s", strings.Join(keys, "+")), nil
}

// PlaySong 按字面标题在 Music 中搜索播放，绝不替换为别的歌。
// PlaySong plays the literal title in Music, never a substitute.
func (m *Mac) PlaySong(ctx context.Context, title string) (string, error) {
	script := fmt.Sprintf(
		`tell application "Music"
			activate
			play (first track of playlist "Library" whose name contains %s)
		end tell`, appleQuote(title))
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("play %q: %w", title, err)
	}
	return fmt.Sprintf("🎵 Playing %q", title), nil
}

func (m *Mac) Pause(ctx context.Context) (string, error) {
	if _, err := m.osascript(ctx, `tell application "Music" to playpause`); err != nil {
		return "", fmt.Errorf("pause: %w", err)
	}
	return "⏯ Toggled playback", nil
}

func (m *Mac) Next(ctx context.Context) (string, error) {
	if _, err := m.osascript(ctx, `tell application "Music" to next track`); err != nil {
		return "", fmt.Errorf("next track: %w", err)
	}
	return "⏭ Next track", nil
}

func (m *Mac) Previous(ctx context.Context) (string, error) {
	if _, err := m.osascript(ctx, `tell application "Music" to previous track`); err != nil {
		return "", fmt.Errorf("previous track: %w", err)
	}
	return "⏮ Previous track", nil
}

func (m *Mac) SetVolume(ctx context.Context, percent int) (string, error) {
	if percent < 0 || percent > 100 {
		return "", fmt.Errorf("volume %d out of range 0-100", percent)
	}
	if _, err := m.osascript(ctx, fmt.Sprintf(`set volume output volume %d`, percent)); err != nil {
		return "", fmt.Errorf("set volume: %w", err)
	}
	return fmt.Sprintf("🔊 Volume set to %d%%", percent), nil
}

func (m *Mac) SetWiFi(ctx context.Context, on bool) (string, error) {
	state := "off"
	if on {
		state = "on"
	}
	if _, err := m.run(ctx, "networksetup", "-setairportpower", "en0", state); err != nil {
		return "", fmt.Errorf("wifi %s: %w", state, err)
	}
	return fmt.Sprintf("📶 WiFi turned %s", state), nil
}

func (m *Mac) SetBluetooth(ctx context.Context, on bool) (string, error) {
	state := "off"
	arg := "0"
	if on {
		state = "on"
		arg = "1"
	}
	if _, err := m.run(ctx, "blueutil", "--power", arg); err != nil {
		return "", fmt.Errorf("bluetooth %s: %w", state, err)
	}
	return fmt.Sprintf("🔵 Bluetooth turned %s", state), nil
}

// SendMessage 通过 Messages.app 发送。
// SendMessage sends via Messages.app.
func (m *Mac) SendMessage(ctx context.Context, contact, message string) (string, error) {
	script := fmt.Sprintf(
		`tell application "Messages"
			set targetBuddy to first buddy whose name contains %s
			send %s to targetBuddy
		end tell`, appleQuote(contact), appleQuote(message))
	if _, err := m.osascript(ctx, script); err != nil {
		return "", fmt.Errorf("send to %s: %w", contact, err)
	}
	return fmt.Sprintf("💬 Sent to %s: %q", contact, message), nil
}

func (m *Mac) FindText(ctx context.Context, text string) (string, error) {
	script := fmt.Sprintf(
		`tell application "System Events" to get position of (first UI element whose name contains %s) of front window of (first process whose frontmost is true)`,
		appleQuote(text))
	out, err := m.osascript(ctx, script)
	if err != nil {
		return "", fmt.Errorf("find %q on screen: %w", text, err)
	}
	return fmt.Sprintf("👁 Found %q at %s", text, strings.TrimSpace(out)), nil
}

func (m *Mac) FindAndClickText(ctx context.Context, text string) (string, error) {
	if _, err := m.FindText(ctx, text); err != nil {
		return "", err
	}
	return m.Click(ctx, text)
}

func (m *Mac) ScreenCoordinates(ctx context.Context, description string) (string, error) {
	return m.FindText(ctx, description)
}
