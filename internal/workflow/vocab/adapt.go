package vocab

import (
	"fmt"
	"strings"

	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
)

// ClosingPhrase 后端适配后总会追加的结尾短语
const ClosingPhrase = "tattoo stencil ready, black outline, suitable for skin application"

// ResolveBackend 按 id 查找后端，空或未知 id 时退回默认后端
func ResolveBackend(t *catalog.Tables, id, fallback string) (*catalog.Backend, bool, error) {
	if b, ok := t.Backend(id); ok {
		return b, true, nil
	}
	if b, ok := t.Backend(fallback); ok {
		return b, strings.TrimSpace(id) == "", nil
	}
	return nil, false, fmt.Errorf("backend %q and fallback %q are not in catalog %s", id, fallback, t.Version)
}

type Adaptation struct {
	Prompt    string
	Truncated bool
}

// Adapt 注入后端专属词汇与结尾短语，并按后端最大长度截断
func Adapt(t *catalog.Tables, prompt string, b *catalog.Backend, analysis wfmodel.PromptAnalysis) Adaptation {
	out := wfnode.AppendPhrases(prompt, b.Adaptation...)
	if len(b.TextAdaptation) > 0 && MentionsText(t, analysis) {
		out = wfnode.AppendPhrases(out, b.TextAdaptation...)
	}
	out = wfnode.AppendPhrase(out, ClosingPhrase)

	truncated, cut := wfnode.TruncateAtWord(out, b.MaxPromptChars)
	return Adaptation{Prompt: truncated, Truncated: cut}
}

// MentionsText 题材或关键词中出现文字类词汇
func MentionsText(t *catalog.Tables, analysis wfmodel.PromptAnalysis) bool {
	if _, ok := wfnode.ContainsAnyTerm(analysis.Subject, t.SubjectKeywords.Text); ok {
		return true
	}
	_, ok := wfnode.ContainsAnyTerm(strings.Join(analysis.Keywords, " "), t.SubjectKeywords.Text)
	return ok
}
