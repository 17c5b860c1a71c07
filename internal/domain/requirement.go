package domain

import "time"

// Priority ranks how important a requirement is relative to the rest of a
// project's asset list.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Dimensions describes a pixel size.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Ratio returns width/height, or 0 for degenerate dimensions.
func (d Dimensions) Ratio() float64 {
	if d.Height <= 0 {
		return 0
	}
	return float64(d.Width) / float64(d.Height)
}

// ImageRequirement is one target image spec produced by the upstream analysis
// stage. It is immutable input to the pipeline.
type ImageRequirement struct {
	Category    string     `json:"category"`
	Quantity    int        `json:"quantity"`
	Dimensions  Dimensions `json:"dimensions"`
	AspectRatio string     `json:"aspect_ratio"`
	Style       string     `json:"style"`
	Subject     string     `json:"subject"`
	Context     string     `json:"context"`
	Priority    Priority   `json:"priority"`
}

// GenerationRequest is the provider-specific shaping of one requirement.
// Never mutated after creation.
type GenerationRequest struct {
	ProviderID     string         `json:"provider_id"`
	ModelID        string         `json:"model_id"`
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	Quantity       int            `json:"quantity"`
	Seed           *int64         `json:"seed,omitempty"`
	ExtraParams    map[string]any `json:"extra_params,omitempty"`
}

// ImageMetadata records how a generated image came to be.
type ImageMetadata struct {
	ProviderID     string         `json:"provider_id"`
	Model          string         `json:"model"`
	Prompt         string         `json:"prompt"`
	NegativePrompt string         `json:"negative_prompt,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// GeneratedImage is one raw image produced by a successful provider call.
type GeneratedImage struct {
	URL        string        `json:"url"`
	Filename   string        `json:"filename"`
	Dimensions Dimensions    `json:"dimensions"`
	Seed       *int64        `json:"seed,omitempty"`
	Metadata   ImageMetadata `json:"metadata"`
}

// GenerationResult is the outcome of one provider request. Adapters never
// return errors past this boundary; failures land here with Success=false.
type GenerationResult struct {
	Success          bool             `json:"success"`
	Images           []GeneratedImage `json:"images"`
	Cost             float64          `json:"cost"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Error            string           `json:"error,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	ProviderID       string           `json:"provider_id"`
}
