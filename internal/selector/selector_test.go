package selector

import (
	"math"
	"testing"

	"assetgen/internal/domain"
)

func TestSelectProviderRules(t *testing.T) {
	transform := SelectProvider(domain.ImageRequirement{Category: "before-after"}, true)
	if transform.ProviderID != ProviderReplicate || transform.ModelID != ModelFluxImg2Img {
		t.Fatalf("before-after with source = %+v, want replicate/%s", transform, ModelFluxImg2Img)
	}

	hifi := SelectProvider(domain.ImageRequirement{
		Priority: domain.PriorityHigh,
		Style:    "clean photorealistic studio lighting",
	}, false)
	if hifi.ProviderID != ProviderOpenAI || hifi.ModelID != ModelDallE3 {
		t.Fatalf("high+photorealistic = %+v, want openai/%s", hifi, ModelDallE3)
	}

	portrait := SelectProvider(domain.ImageRequirement{Category: "team"}, false)
	if portrait.ModelID != ModelPortraitPlus {
		t.Fatalf("team category = %+v, want %s", portrait, ModelPortraitPlus)
	}
	portrait = SelectProvider(domain.ImageRequirement{Subject: "founder portrait in office"}, false)
	if portrait.ModelID != ModelPortraitPlus {
		t.Fatalf("portrait subject = %+v, want %s", portrait, ModelPortraitPlus)
	}

	general := SelectProvider(domain.ImageRequirement{Category: "services"}, false)
	if general.ProviderID != ProviderReplicate || general.ModelID != ModelFluxSchnell {
		t.Fatalf("default = %+v, want replicate/%s", general, ModelFluxSchnell)
	}
}

func TestSelectProviderDeterministic(t *testing.T) {
	req := domain.ImageRequirement{
		Category: "hero",
		Priority: domain.PriorityHigh,
		Style:    "photorealistic",
		Subject:  "storefront",
	}
	first := SelectProvider(req, false)
	for i := 0; i < 10; i++ {
		if got := SelectProvider(req, false); got != first {
			t.Fatalf("selection changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestBestSizePicksClosestAspectRatio(t *testing.T) {
	req := domain.ImageRequirement{Dimensions: domain.Dimensions{Width: 1920, Height: 1080}}
	supported := []domain.Dimensions{
		{Width: 1024, Height: 1024},
		{Width: 1792, Height: 1024},
	}
	got := BestSize(req, supported)
	if got.Width != 1792 || got.Height != 1024 {
		t.Fatalf("best size = %dx%d, want 1792x1024", got.Width, got.Height)
	}
}

func TestBestSizeTieBreaksToFirstListed(t *testing.T) {
	req := domain.ImageRequirement{Dimensions: domain.Dimensions{Width: 1000, Height: 1000}}
	supported := []domain.Dimensions{
		{Width: 512, Height: 512},
		{Width: 1024, Height: 1024},
	}
	got := BestSize(req, supported)
	if got.Width != 512 {
		t.Fatalf("tie should break to first listed, got %dx%d", got.Width, got.Height)
	}
}

func TestBestSizeAlwaysReturnsSupported(t *testing.T) {
	supported := DefaultCatalog().Providers[ProviderOpenAI].SupportedSizes
	cases := []domain.Dimensions{
		{Width: 1, Height: 1},
		{Width: 3000, Height: 100},
		{Width: 100, Height: 3000},
		{Width: 0, Height: 0},
	}
	for _, dims := range cases {
		got := BestSize(domain.ImageRequirement{Dimensions: dims}, supported)
		found := false
		for _, s := range supported {
			if s == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("best size %dx%d for input %dx%d is not a supported size", got.Width, got.Height, dims.Width, dims.Height)
		}
	}
}

func TestBestQualityThresholds(t *testing.T) {
	if q := BestQuality(domain.ImageRequirement{Priority: domain.PriorityHigh}); q != QualityHD {
		t.Fatalf("high priority quality = %q, want hd", q)
	}
	if q := BestQuality(domain.ImageRequirement{Category: "hero"}); q != QualityHD {
		t.Fatalf("hero quality = %q, want hd", q)
	}
	if q := BestQuality(domain.ImageRequirement{Priority: domain.PriorityLow}); q != QualityStandard {
		t.Fatalf("low priority quality = %q, want standard", q)
	}
}

func TestBestStyleFlagKeywords(t *testing.T) {
	if s := BestStyleFlag(domain.ImageRequirement{Style: "vibrant colors"}); s != StyleVivid {
		t.Fatalf("vibrant style = %q, want vivid", s)
	}
	if s := BestStyleFlag(domain.ImageRequirement{Category: "hero"}); s != StyleVivid {
		t.Fatalf("hero style = %q, want vivid", s)
	}
	if s := BestStyleFlag(domain.ImageRequirement{Style: "soft muted pastel"}); s != StyleNatural {
		t.Fatalf("muted style = %q, want natural", s)
	}
}

func TestPriceTableLookups(t *testing.T) {
	prices := DefaultCatalog().Prices
	if c := prices.UnitCost(ModelDallE3, QualityStandard, 1024, 1024); c != 0.040 {
		t.Fatalf("standard 1024 cost = %v, want 0.040", c)
	}
	if c := prices.UnitCost(ModelDallE3, QualityHD, 1792, 1024); c != 0.120 {
		t.Fatalf("hd 1792 cost = %v, want 0.120", c)
	}
	// Unknown size falls back to the dearest configured price for the model.
	if c := prices.UnitCost(ModelDallE3, QualityStandard, 640, 480); c != 0.120 {
		t.Fatalf("fallback cost = %v, want 0.120", c)
	}
	if c := prices.BatchCost(ModelFluxSchnell, 4); math.Abs(c-0.012) > 1e-9 {
		t.Fatalf("batch cost = %v, want 0.012", c)
	}
	if c := prices.BatchCost("unknown-model", 4); c != 0 {
		t.Fatalf("unknown model cost = %v, want 0", c)
	}
}
