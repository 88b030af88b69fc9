package model

type ModelPreferences struct {
	PrioritizeQuality bool     `json:"prioritize_quality,omitempty"`
	PrioritizeSpeed   bool     `json:"prioritize_speed,omitempty"`
	PrioritizeCost    bool     `json:"prioritize_cost,omitempty"`
	PreferredModels   []string `json:"preferred_models,omitempty"`
	AvoidModels       []string `json:"avoid_models,omitempty"`
}

type ScoredModel struct {
	Model  string  `json:"model"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

type ModelRecommendation struct {
	RecommendedModel     string        `json:"recommended_model"`
	Confidence           int           `json:"confidence"`
	Score                float64       `json:"score"`
	Reasoning            []string      `json:"reasoning"`
	ExpectedQuality      string        `json:"expected_quality"`
	EstimatedTimeSeconds int           `json:"estimated_time_seconds"`
	Alternatives         []ScoredModel `json:"alternatives"`
}
