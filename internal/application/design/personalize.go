package design

import (
	"slices"

	"tattoo-ai-api/internal/domain/entity"
	"tattoo-ai-api/internal/workflow/catalog"
	wfmodel "tattoo-ai-api/internal/workflow/model"
)

// Personalize 把高置信度历史记录的后端并入偏好列表。
// 显式回避的后端不会被加入；返回新的偏好，不修改入参。
func Personalize(records []*entity.PromptRecord, prefs *wfmodel.ModelPreferences, threshold int) *wfmodel.ModelPreferences {
	out := wfmodel.ModelPreferences{}
	if prefs != nil {
		out = *prefs
		out.PreferredModels = slices.Clone(prefs.PreferredModels)
		out.AvoidModels = slices.Clone(prefs.AvoidModels)
	}

	avoid := make(map[string]struct{}, len(out.AvoidModels))
	for _, id := range out.AvoidModels {
		avoid[catalog.Normalize(id)] = struct{}{}
	}
	seen := make(map[string]struct{}, len(out.PreferredModels))
	for _, id := range out.PreferredModels {
		seen[catalog.Normalize(id)] = struct{}{}
	}

	for _, r := range records {
		if r == nil || !r.HighConfidence(threshold) {
			continue
		}
		id := catalog.Normalize(r.Backend)
		if _, ok := avoid[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.PreferredModels = append(out.PreferredModels, id)
	}

	if prefs == nil && len(out.PreferredModels) == 0 {
		return nil
	}
	return &out
}
