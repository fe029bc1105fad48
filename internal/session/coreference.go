package session

import (
	"fmt"
	"regexp"
	"strings"
)

// ambiguousPhrases 指代不明的短语列表；命中且存在可指对象时才补充假设。
// ambiguousPhrases lists pronoun-like referent phrases; a hint is produced only
// when one matches AND a tracked referent exists.
var ambiguousPhrases = []string{
	"in it",
	"there",
	"that tab",
	"this tab",
	"the tab",
	"that site",
	"this site",
	"the site",
	"that song",
	"this song",
	"that track",
}

// uiPhrases 屏幕视觉指代短语，用于视觉工具的搜索目标提示。
// uiPhrases are on-screen visual reference phrases used to suggest concrete
// search targets to vision tools.
var uiPhrases = []string{
	"top section",
	"bottom section",
	"left side",
	"right side",
	"song",
	"track",
	"on screen",
}

var playTargetRe = regexp.MustCompile(`(?i)\bplay\s+(.+)$`)

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// referent 按 site → URL → app 的优先级返回当前可指对象。
// referent returns the current referent with site → URL → app priority.
func (s *State) referent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastSite != "" {
		return s.lastSite
	}
	if s.lastURL != "" {
		return s.lastURL
	}
	return s.lastApp
}

// ResolveTask 当任务含有歧义指代且存在被跟踪的对象时，为任务追加显式假设；
// 没有可指对象时原样返回 —— 绝不凭空发明指代。
// ResolveTask appends an explicit parenthetical assumption when the task
// contains an ambiguous referent AND the tracker holds something to resolve it
// to; otherwise the input is returned unchanged, never inventing a referent.
func (s *State) ResolveTask(task string) string {
	if strings.TrimSpace(task) == "" {
		return task
	}
	if !containsAny(strings.ToLower(task), ambiguousPhrases) {
		return task
	}
	target := s.referent()
	if target == "" {
		return task
	}
	return fmt.Sprintf("%s\n(Assume 'it/there/that tab' refers to %s.)", task, target)
}

// ReferenceHint 生成指代提示块（可能为空）。
// ReferenceHint renders the coreference hint block (possibly empty).
func (s *State) ReferenceHint(task string) string {
	if strings.TrimSpace(task) == "" {
		return ""
	}
	if !containsAny(strings.ToLower(task), ambiguousPhrases) {
		return ""
	}
	if s.referent() == "" {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := []string{"## 🔗 COREFERENCE HINT"}
	if s.lastSite != "" {
		lines = append(lines, fmt.Sprintf("- If user says \"it/there/that tab\", assume %s.", s.lastSite))
	}
	if s.lastURL != "" {
		lines = append(lines, "- Last URL: "+s.lastURL)
	}
	if s.lastApp != "" {
		lines = append(lines, "- Last app: "+s.lastApp)
	}
	return strings.Join(lines, "\n")
}

// UIReferenceHint 针对屏幕视觉指代生成提示，并从最近的 "play X" 任务中提取
// 具体的搜索目标供视觉工具使用。
// UIReferenceHint specializes the hint for on-screen visual references and
// extracts the last "play X" target from session history as a concrete search
// target for vision-based tools.
func (s *State) UIReferenceHint(task string) string {
	if strings.TrimSpace(task) == "" {
		return ""
	}
	if !containsAny(strings.ToLower(task), uiPhrases) {
		return ""
	}
	s.mu.RLock()
	lastApp := s.lastApp
	lastTask := s.lastTask
	s.mu.RUnlock()
	if lastApp == "" && lastTask == "" {
		return ""
	}

	lines := []string{"## 👁 UI REFERENCE HINT"}
	if lastApp != "" {
		lines = append(lines, "- Active app: "+lastApp)
	}
	if m := playTargetRe.FindStringSubmatch(lastTask); m != nil {
		target := strings.TrimSpace(m[1])
		if target != "" {
			lines = append(lines, fmt.Sprintf("- Likely on-screen target: %q (from last play request)", target))
		}
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}
