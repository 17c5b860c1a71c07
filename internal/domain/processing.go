package domain

// Format enumerates supported output encodings.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// FitMode controls how a source image is mapped onto a target size.
type FitMode string

const (
	// FitCover fills the target box completely, cropping overflow.
	FitCover FitMode = "cover"
	// FitContain letterboxes the image inside the target box.
	FitContain FitMode = "contain"
	// FitFill stretches to the exact target size, ignoring aspect ratio.
	FitFill FitMode = "fill"
	// FitInside scales down to fit within the box, never padding or cropping.
	FitInside FitMode = "inside"
)

// OptimizationLevel trades encode effort and file size against quality.
type OptimizationLevel string

const (
	OptimizationNone       OptimizationLevel = "none"
	OptimizationBasic      OptimizationLevel = "basic"
	OptimizationAggressive OptimizationLevel = "aggressive"
)

// SizeSpec names one entry of the variant size matrix.
type SizeSpec struct {
	Name               string  `json:"name"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	Fit                FitMode `json:"fit,omitempty"`
	WithoutEnlargement bool    `json:"without_enlargement,omitempty"`
}

// WatermarkOptions configures the optional watermark stamped on variants.
type WatermarkOptions struct {
	Text    string  `json:"text"`
	Opacity float64 `json:"opacity,omitempty"`
}

// ProcessingOptions is the per-run configuration of the variant processor.
// Constructed once per batch and treated as a value object.
type ProcessingOptions struct {
	OutputDir          string            `json:"output_dir"`
	Formats            []Format          `json:"formats"`
	Sizes              []SizeSpec        `json:"sizes"`
	Quality            int               `json:"quality"`
	Watermark          *WatermarkOptions `json:"watermark,omitempty"`
	OptimizationLevel  OptimizationLevel `json:"optimization_level"`
	PreserveOriginal   bool              `json:"preserve_original"`
	GenerateThumbnails bool              `json:"generate_thumbnails"`
}

// ImageVariant records one encoded derivative written to the output tree.
type ImageVariant struct {
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Format    Format `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// ProcessedImage aggregates every variant produced from one source image.
// Created once, never mutated.
type ProcessedImage struct {
	OriginalURL      string         `json:"original_url"`
	OriginalFilename string         `json:"original_filename"`
	Variants         []ImageVariant `json:"variants"`
	Metadata         ImageMetadata  `json:"metadata"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	TotalSizeBytes   int64          `json:"total_size_bytes"`
}
