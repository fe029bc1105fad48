package router

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clickAtRe      = regexp.MustCompile(`(?i)\bclick at (\d+)\s*[, ]\s*(\d+)`)
	clickScreenRe  = regexp.MustCompile(`(?i)\bclick (?:on )?(.+?) on (?:the )?screen`)
	findScreenRe   = regexp.MustCompile(`(?i)\bfind (.+?) on (?:the )?screen`)
	hotkeyRe       = regexp.MustCompile(`(?i)\bpress ((?:[a-z]+\s*\+\s*)+[a-z0-9]+)\b`)
	pressKeyRe     = regexp.MustCompile(`(?i)\bpress (enter|return|tab|space|escape|esc|delete|up|down|left|right)\b`)
	typeTextRe     = regexp.MustCompile(`(?i)^type\s+(.+)$`)
	urlRe          = regexp.MustCompile(`https?://[^\s]+`)
	bareDomainRe   = regexp.MustCompile(`\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)+\b`)
	volumeRe       = regexp.MustCompile(`(?i)\bvolume (?:to )?(\d{1,3})\b`)
	playRe         = regexp.MustCompile(`(?i)^play\s+(.+)$`)
	openAppRe      = regexp.MustCompile(`(?i)\b(?:open|launch|start)\s+(.+)$`)
	switchTabRe    = regexp.MustCompile(`(?i)switch (?:to )?tab (\d+)`)
	chromeScrollRe = regexp.MustCompile(`(?i)scroll (up|down)(?:\s+(\d+))?`)
)

// handleVision 屏幕坐标点击与按屏幕文字定位/点击。通用 click 只有在显式出现
// "on screen" 时才在这里处理，浏览器内点击由 chrome 分支负责。
// handleVision covers explicit coordinate clicks plus locating/clicking
// on-screen text. Generic click only applies here with an explicit
// "on screen"; in-browser clicks belong to the chrome branch.
func (r *Router) handleVision(ctx context.Context, text, lower string) (string, bool) {
	if m := clickAtRe.FindStringSubmatch(text); m != nil {
		x, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		out, err := r.deps.System.ClickAt(ctx, x, y)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if mentionsBrowser(lower) {
		return "", false
	}
	if m := clickScreenRe.FindStringSubmatch(text); m != nil {
		out, err := r.deps.Vision.FindAndClickText(ctx, strings.TrimSpace(m[1]))
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := findScreenRe.FindStringSubmatch(text); m != nil {
		out, err := r.deps.Vision.FindText(ctx, strings.TrimSpace(m[1]))
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}

// handleHotkey 组合键与单键。文本提到 browser/chrome 时让位给浏览器分支，
// 避免双重处理。
// handleHotkey covers key combos and single keys. It yields to the chrome
// branch when the text mentions browser/chrome, to avoid double handling.
func (r *Router) handleHotkey(ctx context.Context, text, lower string) (string, bool) {
	if mentionsBrowser(lower) {
		return "", false
	}
	if m := hotkeyRe.FindStringSubmatch(text); m != nil {
		var keys []string
		for _, k := range strings.Split(m[1], "+") {
			keys = append(keys, strings.TrimSpace(k))
		}
		out, err := r.deps.System.Hotkey(ctx, keys...)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := pressKeyRe.FindStringSubmatch(text); m != nil {
		out, err := r.deps.System.Press(ctx, m[1])
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	if m := typeTextRe.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		payload := strings.Trim(strings.TrimSpace(m[1]), `"'`)
		if payload == "" {
			return "", false
		}
		out, err := r.deps.System.Type(ctx, payload)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}

// handleChrome 浏览器前缀的显式命令。先于通用分支测试，对同形命令有最终
// 裁决权。
// handleChrome covers browser-prefixed explicit commands. Tested before the
// generic branches, it is authoritative for lookalike commands.
func (r *Router) handleChrome(ctx context.Context, text, lower string) (string, bool) {
	if !mentionsBrowser(lower) {
		return "", false
	}
	b := r.deps.Browser

	switch {
	case strings.Contains(lower, "screenshot"):
		out, err := b.Screenshot(ctx)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case chromeScrollRe.MatchString(lower):
		m := chromeScrollRe.FindStringSubmatch(lower)
		amount := 0
		if m[2] != "" {
			amount, _ = strconv.Atoi(m[2])
		}
		out, err := b.Scroll(ctx, m[1], amount)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case strings.Contains(lower, "new tab"):
		url := urlRe.FindString(text)
		if url == "" {
			after := lower[strings.Index(lower, "new tab")+len("new tab"):]
			url = bareDomainRe.FindString(after)
		}
		if url == "" {
			url = "about:blank"
		} else if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			url = "https://" + url
		}
		out, err := b.NewTab(ctx, url)
		if err != nil {
			return fail(err), true
		}
		if url != "about:blank" {
			r.deps.Session.UpdateBrowser(url, "")
		}
		return out, true

	case switchTabRe.MatchString(lower):
		m := switchTabRe.FindStringSubmatch(lower)
		idx, _ := strconv.Atoi(m[1])
		out, err := b.SwitchTab(ctx, idx)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case strings.Contains(lower, "list tabs") || strings.Contains(lower, "show tabs"):
		out, err := b.ListTabs(ctx)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case strings.Contains(lower, "verify "):
		target := strings.TrimSpace(text[strings.Index(lower, "verify ")+len("verify "):])
		if target == "" {
			return "❌ verify needs target text, e.g. \"chrome verify Order placed\"", true
		}
		out, err := b.VerifyText(ctx, target)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case strings.Contains(lower, "get text") || strings.Contains(lower, "read page"):
		out, err := b.GetText(ctx)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case strings.Contains(lower, "click "):
		target := strings.TrimSpace(text[strings.Index(lower, "click ")+len("click "):])
		target = strings.TrimSuffix(target, " in chrome")
		target = strings.TrimSuffix(target, " in the browser")
		if target == "" {
			return "❌ click needs target text, e.g. \"chrome click Sign in\"", true
		}
		out, err := b.Click(ctx, target)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case strings.Contains(lower, "type "):
		payload := strings.TrimSpace(text[strings.Index(lower, "type ")+len("type "):])
		if payload == "" {
			return "❌ type needs text, e.g. \"chrome type hello into Search\"", true
		}
		target := ""
		if i := strings.LastIndex(strings.ToLower(payload), " into "); i >= 0 {
			target = strings.TrimSpace(payload[i+len(" into "):])
			payload = strings.TrimSpace(payload[:i])
		}
		out, err := b.Type(ctx, target, payload)
		if err != nil {
			return fail(err), true
		}
		return out, true

	case pressKeyRe.MatchString(lower):
		m := pressKeyRe.FindStringSubmatch(lower)
		out, err := b.Press(ctx, m[1])
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}

// appAliases 口语名到应用名的静态映射。
// appAliases maps colloquial names to application names.
var appAliases = map[string]string{
	"chrome":        "Google Chrome",
	"google chrome": "Google Chrome",
	"safari":        "Safari",
	"apple music":   "Apple Music",
	"music":         "Music",
	"calculator":    "Calculator",
	"whatsapp":      "WhatsApp",
	"notes":         "Notes",
	"messages":      "Messages",
	"finder":        "Finder",
	"terminal":      "Terminal",
	"spotify":       "Spotify",
}

func (r *Router) handleOpenApp(ctx context.Context, text, lower string) (string, bool) {
	m := openAppRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	target := strings.ToLower(strings.TrimSpace(m[1]))
	target = strings.TrimPrefix(target, "the ")
	target = strings.TrimSuffix(target, " app")
	app, ok := appAliases[target]
	if !ok {
		return "", false
	}
	out, err := r.deps.System.OpenApp(ctx, app)
	if err != nil {
		return fail(err), true
	}
	r.deps.Session.UpdateApp(app)
	return out, true
}

// handleNavigate URL/域名导航。浏览器桥在线（或短暂等待后上线）时走桥内导航，
// 否则回退为直接抓取页面。
// handleNavigate covers URL/domain navigation. It navigates through the
// browser bridge when attached (after a short wait), else falls back to a
// direct page fetch.
func (r *Router) handleNavigate(ctx context.Context, text, lower string) (string, bool) {
	hasVerb := strings.Contains(lower, "open") || strings.Contains(lower, "go to") ||
		strings.Contains(lower, "visit") || strings.Contains(lower, "navigate")

	target := urlRe.FindString(text)
	if target == "" {
		if !hasVerb {
			return "", false
		}
		if strings.Contains(lower, "whatsapp web") {
			target = "web.whatsapp.com"
		} else {
			target = bareDomainRe.FindString(lower)
		}
		if target == "" {
			return "", false
		}
	}

	url := target
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	if err := r.deps.Browser.WaitForConnection(ctx, 2*time.Second); err == nil {
		out, err := r.deps.Browser.Navigate(ctx, url)
		if err != nil {
			return fail(err), true
		}
		r.deps.Session.UpdateBrowser(url, "")
		return out, true
	}

	out, err := r.deps.Pages.Visit(ctx, url)
	if err != nil {
		return fail(err), true
	}
	r.deps.Session.UpdateBrowser(url, "")
	return out, true
}

// playQualifiers 从歌名尾部剥离的限定词。
// playQualifiers are the trailing qualifiers stripped off a song title.
var playQualifiers = []string{
	"on apple music", "in apple music", "on music", "in music",
	"song", "music", "track",
}

// handlePlaySong 提取 "play X" 的 X 作为字面歌名。标题绝不转述，上游 LLM 无权
// 替换成别的歌。
// handlePlaySong extracts X from "play X" as the literal song title. The title
// is never paraphrased; upstream LLM layers must not substitute a different
// song.
func (r *Router) handlePlaySong(ctx context.Context, text, lower string) (string, bool) {
	m := playRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[1])
	for changed := true; changed; {
		changed = false
		lowerTitle := strings.ToLower(title)
		for _, q := range playQualifiers {
			if strings.HasSuffix(lowerTitle, q) {
				title = strings.TrimSpace(title[:len(title)-len(q)])
				title = strings.TrimSpace(strings.TrimSuffix(title, ","))
				lowerTitle = strings.ToLower(title)
				changed = true
			}
		}
		for _, p := range []string{"the song ", "the track ", "some "} {
			if strings.HasPrefix(lowerTitle, p) {
				title = strings.TrimSpace(title[len(p):])
				lowerTitle = strings.ToLower(title)
				changed = true
			}
		}
	}
	if title == "" {
		return "", false
	}
	out, err := r.deps.Media.PlaySong(ctx, title)
	if err != nil {
		return fail(err), true
	}
	return out, true
}

func (r *Router) handleMedia(ctx context.Context, text, lower string) (string, bool) {
	var (
		out string
		err error
	)
	switch {
	case lower == "pause" || strings.Contains(lower, "pause the music") || strings.Contains(lower, "pause music"):
		out, err = r.deps.Media.Pause(ctx)
	case lower == "next" || strings.Contains(lower, "next song") || strings.Contains(lower, "next track") || strings.Contains(lower, "skip this song"):
		out, err = r.deps.Media.Next(ctx)
	case lower == "previous" || strings.Contains(lower, "previous song") || strings.Contains(lower, "previous track"):
		out, err = r.deps.Media.Previous(ctx)
	default:
		return "", false
	}
	if err != nil {
		return fail(err), true
	}
	return out, true
}

func (r *Router) handleVolume(ctx context.Context, text, lower string) (string, bool) {
	m := volumeRe.FindStringSubmatch(lower)
	if m == nil {
		return "", false
	}
	percent, _ := strconv.Atoi(m[1])
	if percent > 100 {
		return fmt.Sprintf("❌ Volume %d is out of range, use 0-100.", percent), true
	}
	out, err := r.deps.Device.SetVolume(ctx, percent)
	if err != nil {
		return fail(err), true
	}
	return out, true
}

func (r *Router) handleRadios(ctx context.Context, text, lower string) (string, bool) {
	on := strings.Contains(lower, " on")
	off := strings.Contains(lower, " off")
	if on == off {
		return "", false
	}
	switch {
	case strings.Contains(lower, "wifi") || strings.Contains(lower, "wi-fi"):
		out, err := r.deps.Device.SetWiFi(ctx, on)
		if err != nil {
			return fail(err), true
		}
		return out, true
	case strings.Contains(lower, "bluetooth"):
		out, err := r.deps.Device.SetBluetooth(ctx, on)
		if err != nil {
			return fail(err), true
		}
		return out, true
	}
	return "", false
}
