// Package selector holds the pure heuristics that map an image requirement
// onto a provider, model, output size, quality tier, and style flag. The
// functions are total over well-typed input and perform no I/O; identical
// inputs always yield identical output.
package selector

import (
	"math"
	"strings"

	"assetgen/internal/domain"
)

// Selection names the provider and model chosen for a requirement.
type Selection struct {
	ProviderID string
	ModelID    string
}

// SelectProvider chooses the provider/model pair for a requirement.
func SelectProvider(req domain.ImageRequirement, hasSourceImage bool) Selection {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	style := strings.ToLower(req.Style)
	subject := strings.ToLower(req.Subject)

	if hasSourceImage && category == "before-after" {
		return Selection{ProviderID: ProviderReplicate, ModelID: ModelFluxImg2Img}
	}
	if req.Priority == domain.PriorityHigh && strings.Contains(style, "photorealistic") {
		return Selection{ProviderID: ProviderOpenAI, ModelID: ModelDallE3}
	}
	if category == "team" || strings.Contains(subject, "portrait") {
		return Selection{ProviderID: ProviderReplicate, ModelID: ModelPortraitPlus}
	}
	return Selection{ProviderID: ProviderReplicate, ModelID: ModelFluxSchnell}
}

// HighFidelitySelection is the provider/model used to upgrade part of a
// high-priority requirement's quantity.
func HighFidelitySelection() Selection {
	return Selection{ProviderID: ProviderOpenAI, ModelID: ModelDallE3}
}

// BestSize picks the supported size whose aspect ratio is closest to the
// requirement's. Ties break toward the first listed supported size.
func BestSize(req domain.ImageRequirement, supported []domain.Dimensions) domain.Dimensions {
	if len(supported) == 0 {
		return req.Dimensions
	}
	target := req.Dimensions.Ratio()
	if target == 0 {
		target = 1
	}
	best := supported[0]
	bestDiff := math.Abs(supported[0].Ratio() - target)
	for _, size := range supported[1:] {
		diff := math.Abs(size.Ratio() - target)
		if diff < bestDiff {
			best = size
			bestDiff = diff
		}
	}
	return best
}

// BestQuality chooses the quality tier from priority and category thresholds.
func BestQuality(req domain.ImageRequirement) string {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if req.Priority == domain.PriorityHigh || category == "hero" {
		return QualityHD
	}
	return QualityStandard
}

// BestStyleFlag chooses the provider style flag from style keywords.
func BestStyleFlag(req domain.ImageRequirement) string {
	category := strings.ToLower(strings.TrimSpace(req.Category))
	style := strings.ToLower(req.Style)
	if category == "hero" {
		return StyleVivid
	}
	for _, keyword := range []string{"vibrant", "dramatic", "bold"} {
		if strings.Contains(style, keyword) {
			return StyleVivid
		}
	}
	return StyleNatural
}
