package selector

import "assetgen/internal/domain"

// Provider identifiers. The generation registry keys adapters by these.
const (
	ProviderOpenAI    = "openai"
	ProviderReplicate = "replicate"
)

// Model identifiers per provider family.
const (
	ModelDallE3       = "dall-e-3"
	ModelFluxSchnell  = "flux-schnell"
	ModelPortraitPlus = "portrait-plus"
	ModelFluxImg2Img  = "flux-img2img"
)

// Quality tiers for providers that support them.
const (
	QualityStandard = "standard"
	QualityHD       = "hd"
)

// Style flags for providers that support them.
const (
	StyleVivid   = "vivid"
	StyleNatural = "natural"
)

// ProviderInfo describes the static capabilities of one provider family.
type ProviderInfo struct {
	ID             string
	SupportedSizes []domain.Dimensions
	// MaxBatchSize is the provider hard limit of images per call.
	// Single-image providers declare 1.
	MaxBatchSize int
}

// UnitPrice is the price of one generated image for a given model, quality
// tier, and resolved size.
type UnitPrice struct {
	Model   string
	Quality string
	Width   int
	Height  int
	USD     float64
}

// PriceTable carries the static per-provider prices, enumerated once at
// startup and passed into adapter constructors.
type PriceTable struct {
	// Units prices single-image providers per generated image.
	Units []UnitPrice
	// PerThousand prices batch providers per thousand returned images,
	// keyed by model.
	PerThousand map[string]float64
}

// UnitCost looks up the per-image price for a single-image provider call.
// Unknown combinations fall back to the most expensive configured price for
// the model so cost reporting never under-counts.
func (t PriceTable) UnitCost(model, quality string, width, height int) float64 {
	var fallback float64
	for _, p := range t.Units {
		if p.Model != model {
			continue
		}
		if p.USD > fallback {
			fallback = p.USD
		}
		if p.Quality == quality && p.Width == width && p.Height == height {
			return p.USD
		}
	}
	return fallback
}

// BatchCost prices a batch provider call from the number of images returned.
func (t PriceTable) BatchCost(model string, imagesReturned int) float64 {
	perThousand, ok := t.PerThousand[model]
	if !ok || imagesReturned <= 0 {
		return 0
	}
	return perThousand / 1000 * float64(imagesReturned)
}

// Catalog aggregates provider capabilities and prices.
type Catalog struct {
	Providers map[string]ProviderInfo
	Prices    PriceTable
}

// DefaultCatalog enumerates the two supported provider families.
func DefaultCatalog() Catalog {
	return Catalog{
		Providers: map[string]ProviderInfo{
			ProviderOpenAI: {
				ID:           ProviderOpenAI,
				MaxBatchSize: 1,
				SupportedSizes: []domain.Dimensions{
					{Width: 1024, Height: 1024},
					{Width: 1792, Height: 1024},
					{Width: 1024, Height: 1792},
				},
			},
			ProviderReplicate: {
				ID:           ProviderReplicate,
				MaxBatchSize: 4,
				SupportedSizes: []domain.Dimensions{
					{Width: 1024, Height: 1024},
					{Width: 1344, Height: 768},
					{Width: 768, Height: 1344},
					{Width: 1536, Height: 640},
				},
			},
		},
		Prices: PriceTable{
			Units: []UnitPrice{
				{Model: ModelDallE3, Quality: QualityStandard, Width: 1024, Height: 1024, USD: 0.040},
				{Model: ModelDallE3, Quality: QualityStandard, Width: 1792, Height: 1024, USD: 0.080},
				{Model: ModelDallE3, Quality: QualityStandard, Width: 1024, Height: 1792, USD: 0.080},
				{Model: ModelDallE3, Quality: QualityHD, Width: 1024, Height: 1024, USD: 0.080},
				{Model: ModelDallE3, Quality: QualityHD, Width: 1792, Height: 1024, USD: 0.120},
				{Model: ModelDallE3, Quality: QualityHD, Width: 1024, Height: 1792, USD: 0.120},
			},
			PerThousand: map[string]float64{
				ModelFluxSchnell:  3.0,
				ModelPortraitPlus: 5.0,
				ModelFluxImg2Img:  5.0,
			},
		},
	}
}
