package memory

import (
	"regexp"
	"strings"
)

// sensitiveKeywords 一旦消息命中任一关键词，整条消息放弃蒸馏。
// sensitiveKeywords: if a message contains any of these, the whole message is
// skipped. All or nothing, never a partial extraction from sensitive text.
var sensitiveKeywords = []string{
	"password", "passcode", "otp", "api key", "secret", "token",
	"private key", "seed phrase", "mnemonic", "credit card", "ssn",
}

// safePredicates 允许自动写入的谓语白名单。
// safePredicates is the allowlist of predicates auto-distillation may write.
var safePredicates = map[string]bool{
	"preference":     true,
	"preferred_name": true,
	"name":           true,
	"title":          true,
	"pronouns":       true,
	"timezone":       true,
	"language":       true,
	"theme":          true,
}

// looksSensitive 召回与蒸馏共用的敏感词检查。
// looksSensitive is the sensitive-keyword check shared by recall and
// distillation.
func looksSensitive(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type distillPattern struct {
	re        *regexp.Regexp
	predicate string
}

var distillPatterns = []distillPattern{
	{regexp.MustCompile(`(?i)\bcall me ([\w .'-]{1,40})`), "preferred_name"},
	{regexp.MustCompile(`(?i)\bi go by ([\w .'-]{1,40})`), "preferred_name"},
	{regexp.MustCompile(`(?i)\bmy name is ([\w .'-]{1,40})`), "name"},
	{regexp.MustCompile(`(?i)\bmy pronouns are ([\w/ ]{1,20})`), "pronouns"},
	{regexp.MustCompile(`(?i)\bmy timezone is ([\w/+-]{1,40})`), "timezone"},
	{regexp.MustCompile(`(?i)\bi prefer ([^.,!?\n]{2,80})`), "preference"},
	{regexp.MustCompile(`(?i)\bi (?:really )?(?:like|love) using ([^.,!?\n]{2,80})`), "preference"},
	{regexp.MustCompile(`(?i)\bi use ([^.,!?\n]{2,80}) for`), "preference"},
	{regexp.MustCompile(`(?i)\b(dark|light) (?:mode|theme)\b`), "theme"},
}

// Distilled 蒸馏出的候选事实。
// Distilled is a candidate fact extracted from a message.
type Distilled struct {
	Predicate string
	Object    string
}

// Distill 从一条用户消息中抽取稳定偏好类事实。敏感消息整条跳过；谓语不在
// 白名单内的候选被丢弃。
// Distill extracts stable preference-class facts from one user message.
// Sensitive messages are skipped entirely; candidates outside the predicate
// allowlist are dropped.
func Distill(message string) []Distilled {
	if looksSensitive(message) {
		return nil
	}

	var out []Distilled
	seen := map[string]bool{}
	for _, p := range distillPatterns {
		m := p.re.FindStringSubmatch(message)
		if m == nil || !safePredicates[p.predicate] {
			continue
		}
		object := strings.TrimSpace(m[1])
		if object == "" {
			continue
		}
		key := p.predicate + "\x00" + strings.ToLower(object)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Distilled{Predicate: p.predicate, Object: object})
	}
	return out
}

// DistillAndStore 蒸馏并以 upsert 语义写入存储，返回实际写入条数；中途失败时
// 计数仍反映已写入的部分。
// DistillAndStore distills and upserts into the store, returning how many
// facts were actually written. On a mid-loop failure the count still reflects
// the facts already persisted.
func DistillAndStore(s *Store, sessionID, message string) (int, error) {
	written := 0
	for _, c := range Distill(message) {
		if _, err := s.UpsertFact("user", c.Predicate, c.Object, "auto_distiller", sessionID, 0.8); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
