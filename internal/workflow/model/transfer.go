package model

import "time"

type StyleTransferRequest struct {
	OriginalPrompt      string `json:"original_prompt"`
	OriginalStyle       string `json:"original_style"`
	TargetStyle         string `json:"target_style"`
	TargetModel         string `json:"target_model,omitempty"`
	PreserveSubject     bool   `json:"preserve_subject"`
	PreserveComposition bool   `json:"preserve_composition"`
	PreserveColorScheme bool   `json:"preserve_color_scheme"`
	CustomInstructions  string `json:"custom_instructions,omitempty"`
}

type TransformedElement struct {
	Type        string `json:"type"`
	Original    string `json:"original"`
	Transformed string `json:"transformed"`
}

type StyleTransferResult struct {
	OriginalPrompt      string               `json:"original_prompt"`
	TransferredPrompt   string               `json:"transferred_prompt"`
	OriginalStyle       string               `json:"original_style"`
	TargetStyle         string               `json:"target_style"`
	RuleApplied         bool                 `json:"rule_applied"`
	ConfidenceScore     int                  `json:"confidence_score"`
	CompatibilityScore  int                  `json:"compatibility_score"`
	EstimatedQuality    int                  `json:"estimated_quality"`
	PreservedElements   []string             `json:"preserved_elements"`
	TransformedElements []TransformedElement `json:"transformed_elements"`
	Warnings            []string             `json:"warnings"`
	Suggestions         []string             `json:"suggestions"`
	ProcessingTime      time.Duration        `json:"processing_time"`
}
