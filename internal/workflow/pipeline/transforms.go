package pipeline

import (
	"fmt"
	"strings"

	"tattoo-ai-api/internal/workflow/analyzer"
	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
	wfnode "tattoo-ai-api/internal/workflow/node"
	"tattoo-ai-api/internal/workflow/vocab"
)

const (
	genericQualifier = "high resolution, detailed"
	skinPreview      = "realistic skin preview rendering"
	stencilOutline   = "clean stencil outline for print"
)

var (
	qualityTerms  = []string{"high resolution", "detailed", "high quality", "professional quality", "sharp focus"}
	qualityLadder = []string{"professional quality", "tattoo-ready design", "clean execution"}
)

// run 单次管线执行的状态，仅在本次调用内使用
type run struct {
	tables         *catalog.Tables
	ec             wfmodel.EnhancementContext
	defaultBackend string

	backend string
	notes   []string
}

type transformFunc func(r *run, prompt string) (string, error)

func domainContext(_ *run, p string) (string, error) {
	hasTattoo := wfnode.HasPhrase(p, "tattoo")
	hasProfessional := wfnode.HasPhrase(p, "professional")
	switch {
	case !hasTattoo && !hasProfessional:
		return "professional tattoo design, " + p, nil
	case !hasTattoo:
		return "tattoo design, " + p, nil
	case !hasProfessional:
		return "professional " + p, nil
	}
	return p, nil
}

func styleEnhancement(r *run, p string) (string, error) {
	return vocab.EnhanceStyle(r.tables, p, r.ec), nil
}

func technicalOptimization(r *run, p string) (string, error) {
	out := p
	if tech, ok := r.tables.Technique(r.ec.Technique); ok {
		out = wfnode.AppendPhrases(out, tech.Technical...)
	}
	for _, term := range qualityTerms {
		if wfnode.HasPhrase(out, term) {
			return out, nil
		}
	}
	return wfnode.AppendPhrase(out, genericQualifier), nil
}

func modelAdaptation(r *run, p string) (string, error) {
	b, matched, err := vocab.ResolveBackend(r.tables, r.ec.TargetModel, r.defaultBackend)
	if err != nil {
		return "", err
	}
	if !matched {
		r.notes = append(r.notes, fmt.Sprintf("unknown target model %q, adapted for %s", r.ec.TargetModel, b.ID))
	}
	r.backend = b.ID

	analysis := analyzer.Analyze(r.tables, p, wfmodel.AnalysisHints{
		Style:     r.ec.Style,
		Technique: r.ec.Technique,
		Subject:   r.ec.Subject,
	})
	adapted := vocab.Adapt(r.tables, p, b, analysis)
	if adapted.Truncated {
		r.notes = append(r.notes, fmt.Sprintf("prompt truncated to %d characters for %s", b.MaxPromptChars, b.ID))
	}
	return adapted.Prompt, nil
}

func qualityEnhancement(_ *run, p string) (string, error) {
	for _, term := range qualityLadder {
		if !wfnode.HasPhrase(p, term) {
			return wfnode.AppendPhrase(p, term), nil
		}
	}
	return p, nil
}

func contextRefinement(r *run, p string) (string, error) {
	out := p
	if zone := catalog.Normalize(r.ec.Placement); zone != "" {
		phrase, ok := r.tables.Placement(zone)
		if !ok {
			phrase = "composition adapted to the " + zone
		}
		out = wfnode.AppendPhrase(out, phrase)
	}
	if r.ec.PreviewMode {
		return wfnode.AppendPhrase(out, skinPreview), nil
	}
	return wfnode.AppendPhrase(out, stencilOutline), nil
}

var transforms = map[StageName]transformFunc{
	StageDomainContext:         domainContext,
	StageStyleEnhancement:      styleEnhancement,
	StageTechnicalOptimization: technicalOptimization,
	StageModelAdaptation:       modelAdaptation,
	StageQualityEnhancement:    qualityEnhancement,
	StageContextRefinement:     contextRefinement,
}

func suggestions(prompt string, ec wfmodel.EnhancementContext) []string {
	out := []string{}
	if strings.TrimSpace(ec.Style) == "" {
		out = append(out, "Specify a tattoo style such as traditional, realistic or watercolor for more targeted results")
	}
	if strings.TrimSpace(ec.ColorPalette) == "" {
		out = append(out, "Specify a color palette (black and gray or color)")
	}
	if strings.TrimSpace(ec.Placement) == "" {
		out = append(out, "Mention the body placement so the composition fits the area")
	}
	words := wfnode.WordCount(prompt)
	if words < 5 {
		out = append(out, "Add more detail about the subject and its surroundings")
	}
	if words > 40 {
		out = append(out, "Consider shortening the prompt so the key elements stay prominent")
	}
	for _, prev := range ec.History {
		if strings.EqualFold(strings.TrimSpace(prev), prompt) {
			out = append(out, "This prompt matches an earlier request; vary the subject or style for a fresh result")
			break
		}
	}
	return out
}
