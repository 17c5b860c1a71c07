package generation

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"assetgen/internal/domain"
)

var titleCaser = cases.Title(language.Und)

// BuildPrompt composes the generation prompt for a requirement. The output
// is deterministic so repeated runs shape identical provider requests.
func BuildPrompt(req domain.ImageRequirement, extraStyle, mood string) string {
	var parts []string

	subject := strings.TrimSpace(req.Subject)
	if subject != "" {
		parts = append(parts, titleCaser.String(subject))
	} else {
		parts = append(parts, titleCaser.String(strings.TrimSpace(req.Category))+" photograph")
	}
	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		parts = append(parts, ctx)
	}

	styles := make([]string, 0, 3)
	if s := strings.TrimSpace(req.Style); s != "" {
		styles = append(styles, s)
	}
	if s := strings.TrimSpace(extraStyle); s != "" && !strings.EqualFold(s, req.Style) {
		styles = append(styles, s)
	}
	if m := strings.TrimSpace(mood); m != "" {
		styles = append(styles, m+" mood")
	}
	if len(styles) > 0 {
		parts = append(parts, strings.Join(styles, ", "))
	}

	parts = append(parts, "professional composition, high detail")
	return strings.Join(parts, ". ")
}

// BuildNegativePrompt lists the defects every generation should avoid,
// tightened further for high-priority requirements.
func BuildNegativePrompt(req domain.ImageRequirement) string {
	negatives := []string{"blurry", "low quality", "watermark", "text artifacts", "distorted anatomy"}
	if req.Priority == domain.PriorityHigh {
		negatives = append(negatives, "jpeg artifacts", "oversaturated")
	}
	return strings.Join(negatives, ", ")
}

// BuildPairPrompts composes the before/after prompt pair for a transform run.
func BuildPairPrompts(businessType, subject string) (before, after string) {
	business := strings.TrimSpace(businessType)
	if business == "" {
		business = "business"
	}
	target := strings.TrimSpace(subject)
	if target == "" {
		target = fmt.Sprintf("%s workspace", business)
	}
	before = fmt.Sprintf("%s before any improvement: cluttered, dated, poorly lit, documentary style", titleCaser.String(target))
	after = fmt.Sprintf("The same %s after a professional %s transformation: clean, renovated, bright, inviting", target, business)
	return before, after
}
