package vocab

import (
	"fmt"

	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
)

const (
	compositionPhrase = "well-balanced composition"
	previewPhrase     = "visualized on skin"
	printPhrase       = "print-ready artwork"
)

// EnhanceStyle 注入风格词汇、技法、色板、部位、构图、线条、模式与题材短语。
// ec.Style 为空时原样返回。查表缺失时使用通用短语兜底。
func EnhanceStyle(t *catalog.Tables, prompt string, ec wfmodel.EnhancementContext) string {
	style := catalog.Normalize(ec.Style)
	if style == "" {
		return prompt
	}

	out := prompt
	sv, known := t.Style(style)
	if known {
		out = wfnode.AppendPhrases(out, sv.Vocabulary...)
	} else {
		out = wfnode.AppendPhrase(out, style+" style")
	}

	if tech, ok := t.Technique(ec.Technique); ok {
		out = wfnode.AppendPhrase(out, tech.Phrase)
	}

	if palette := catalog.Normalize(ec.ColorPalette); palette != "" {
		phrase, ok := t.Palette(palette)
		if !ok {
			phrase = palette + " color palette"
		}
		out = wfnode.AppendPhrase(out, phrase)
	}

	if zone := catalog.Normalize(ec.Placement); zone != "" {
		out = wfnode.AppendPhrase(out, fmt.Sprintf("sized for the %s", zone))
	}

	out = wfnode.AppendPhrase(out, compositionPhrase)

	if known && sv.LineWeight != "" {
		out = wfnode.AppendPhrase(out, sv.LineWeight)
	}

	if ec.PreviewMode {
		out = wfnode.AppendPhrase(out, previewPhrase)
	} else {
		out = wfnode.AppendPhrase(out, printPhrase)
	}

	if phrase, ok := SubjectPhrase(t, ec.Subject); ok {
		out = wfnode.AppendPhrase(out, phrase)
	}
	return out
}

// SubjectPhrase 返回第一个匹配题材组的描述短语
func SubjectPhrase(t *catalog.Tables, subject string) (string, bool) {
	if subject == "" {
		return "", false
	}
	for _, group := range t.Subjects {
		if _, ok := wfnode.ContainsAnyTerm(subject, group.Keywords); ok {
			return group.Phrase, true
		}
	}
	return "", false
}
