package memory

import (
	"fmt"
	"strings"

	"valet/internal/tokencount"
)

const (
	recallMaxFacts    = 16
	recallMaxEpisodes = 3
)

// Assembler 按 token 预算组装召回块。
// Assembler builds the recall block within a token budget.
type Assembler struct {
	store     *Store
	tokenizer *tokencount.Tokenizer
	maxTokens int
}

// NewAssembler maxTokens <= 0 时使用默认预算 1200。
// NewAssembler uses the default budget of 1200 when maxTokens <= 0.
func NewAssembler(store *Store, tokenizer *tokencount.Tokenizer, maxTokens int) *Assembler {
	if maxTokens <= 0 {
		maxTokens = 1200
	}
	return &Assembler{store: store, tokenizer: tokenizer, maxTokens: maxTokens}
}

// Build 渲染注入提示词的记忆块：相关事实在前，近期情景摘要在后。超出预算的
// 条目直接截断。没有任何内容时返回空串。
// Build renders the memory block for prompt injection: relevant facts first,
// recent episode summaries after. Lines beyond the budget are dropped.
// Returns "" when there is nothing to recall.
func (a *Assembler) Build(query string) (string, error) {
	facts, err := a.store.SearchFacts(query, recallMaxFacts)
	if err != nil {
		return "", fmt.Errorf("recall facts: %w", err)
	}
	if len(facts) < recallMaxFacts {
		recent, err := a.store.RecentFacts(recallMaxFacts - len(facts))
		if err != nil {
			return "", fmt.Errorf("recall recent facts: %w", err)
		}
		seen := map[int64]bool{}
		for _, f := range facts {
			seen[f.ID] = true
		}
		for _, f := range recent {
			if !seen[f.ID] {
				facts = append(facts, f)
			}
		}
	}
	episodes, err := a.store.RecentEpisodes(recallMaxEpisodes)
	if err != nil {
		return "", fmt.Errorf("recall episodes: %w", err)
	}
	if len(facts) == 0 && len(episodes) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("## 🧠 RETRIEVED MEMORY\n")
	used := a.tokenizer.Count(b.String())
	appendLine := func(line string) bool {
		cost := a.tokenizer.Count(line)
		if used+cost > a.maxTokens {
			return false
		}
		b.WriteString(line)
		used += cost
		return true
	}

	for _, f := range facts {
		if looksSensitive(f.Predicate) || looksSensitive(f.Object) {
			continue
		}
		if !appendLine(fmt.Sprintf("- %s %s: %s\n", f.Subject, f.Predicate, f.Object)) {
			break
		}
	}
	if len(episodes) > 0 {
		if appendLine("Past sessions:\n") {
			for _, e := range episodes {
				if !appendLine(fmt.Sprintf("- %s\n", e.Summary)) {
					break
				}
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
