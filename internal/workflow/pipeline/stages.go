package pipeline

import (
	"errors"
	"fmt"
	"sort"
)

type StageName string

const (
	StageDomainContext         StageName = "domain-context"
	StageStyleEnhancement      StageName = "style-enhancement"
	StageTechnicalOptimization StageName = "technical-optimization"
	StageModelAdaptation       StageName = "model-adaptation"
	StageQualityEnhancement    StageName = "quality-enhancement"
	StageContextRefinement     StageName = "context-refinement"
)

// stageOrder 固定的执行顺序，配置只能修改启用状态与权重
var stageOrder = []StageName{
	StageDomainContext,
	StageStyleEnhancement,
	StageTechnicalOptimization,
	StageModelAdaptation,
	StageQualityEnhancement,
	StageContextRefinement,
}

var defaultWeights = map[StageName]float64{
	StageDomainContext:         0.8,
	StageStyleEnhancement:      1.0,
	StageTechnicalOptimization: 0.7,
	StageModelAdaptation:       0.6,
	StageQualityEnhancement:    0.5,
	StageContextRefinement:     0.6,
}

const maxStageWeight = 2.0

var ErrUnknownStage = errors.New("unknown enhancement stage")

// StageNames 按执行顺序返回全部阶段名
func StageNames() []StageName {
	return append([]StageName(nil), stageOrder...)
}

type StageSetting struct {
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"`
}

// StageOverride 配置文件中的部分覆盖，nil 字段保留默认值
type StageOverride struct {
	Enabled *bool
	Weight  *float64
}

// StageConfig 六个阶段的完整设置
type StageConfig map[StageName]StageSetting

func DefaultStageConfig() StageConfig {
	cfg := make(StageConfig, len(stageOrder))
	for _, name := range stageOrder {
		cfg[name] = StageSetting{Enabled: true, Weight: defaultWeights[name]}
	}
	return cfg
}

// NewStageConfig 在默认值上应用覆盖；未知阶段名或越界权重直接拒绝
func NewStageConfig(overrides map[string]StageOverride) (StageConfig, error) {
	cfg := DefaultStageConfig()

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, raw := range names {
		name := StageName(raw)
		setting, ok := cfg[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, raw)
		}
		o := overrides[raw]
		if o.Enabled != nil {
			setting.Enabled = *o.Enabled
		}
		if o.Weight != nil {
			w := *o.Weight
			if w < 0 || w > maxStageWeight {
				return nil, fmt.Errorf("stage %q: weight %.2f outside [0, %.0f]", raw, w, maxStageWeight)
			}
			setting.Weight = w
		}
		cfg[name] = setting
	}
	return cfg, nil
}
