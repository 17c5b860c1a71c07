package generation

import (
	"strings"
	"testing"
	"time"

	"assetgen/internal/domain"
)

func TestBuildPromptDeterministic(t *testing.T) {
	req := domain.ImageRequirement{
		Category: "hero",
		Subject:  "artisan bakery counter",
		Context:  "morning light through the window",
		Style:    "warm, rustic",
	}
	first := BuildPrompt(req, "photorealistic", "inviting")
	second := BuildPrompt(req, "photorealistic", "inviting")
	if first != second {
		t.Fatalf("prompt must be deterministic:\n%s\n%s", first, second)
	}
	if !strings.HasPrefix(first, "Artisan Bakery Counter") {
		t.Fatalf("prompt must open with the title-cased subject, got %q", first)
	}
	if !strings.HasSuffix(first, "professional composition, high detail") {
		t.Fatalf("prompt must close with the fixed suffix, got %q", first)
	}
	if !strings.Contains(first, "inviting mood") {
		t.Fatalf("prompt must carry the mood, got %q", first)
	}
}

func TestBuildNegativePromptTightensForHighPriority(t *testing.T) {
	base := BuildNegativePrompt(domain.ImageRequirement{Priority: domain.PriorityMedium})
	high := BuildNegativePrompt(domain.ImageRequirement{Priority: domain.PriorityHigh})
	if !strings.Contains(base, "blurry") {
		t.Fatalf("expected shared negatives, got %q", base)
	}
	if !strings.Contains(high, "jpeg artifacts") {
		t.Fatalf("expected extra negatives for high priority, got %q", high)
	}
	if strings.Contains(base, "jpeg artifacts") {
		t.Fatalf("extra negatives must be high priority only, got %q", base)
	}
}

func TestImageFilename(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	got := imageFilename("Product Shots", 7, domain.Dimensions{Width: 1024, Height: 768}, ts)
	want := "product-shots_0007_1024x768_20260314T093000.png"
	if got != want {
		t.Fatalf("filename %q, want %q", got, want)
	}
}

func TestNextSequenceMonotonic(t *testing.T) {
	a := nextSequence()
	b := nextSequence()
	if b <= a {
		t.Fatalf("sequence must increase: %d then %d", a, b)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hero Banner":  "hero-banner",
		"  ":           "image",
		"café & bar!!": "caf-bar",
		"team":         "team",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
