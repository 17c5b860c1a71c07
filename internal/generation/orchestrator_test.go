package generation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/selector"
)

type stubAdapter struct {
	id       string
	requests []domain.GenerationRequest
	costPer  float64
	fail     bool
}

func (s *stubAdapter) ProviderID() string { return s.id }

func (s *stubAdapter) Generate(_ context.Context, reqs []domain.GenerationRequest) []domain.GenerationResult {
	s.requests = append(s.requests, reqs...)
	out := make([]domain.GenerationResult, len(reqs))
	for i, r := range reqs {
		if s.fail {
			out[i] = domain.GenerationResult{Success: false, Error: "provider down", ProviderID: s.id}
			continue
		}
		images := make([]domain.GeneratedImage, r.Quantity)
		for j := range images {
			images[j] = domain.GeneratedImage{
				URL:        fmt.Sprintf("https://cdn.example/%s-%d-%d.png", s.id, i, j),
				Dimensions: domain.Dimensions{Width: r.Width, Height: r.Height},
			}
		}
		out[i] = domain.GenerationResult{
			Success:    true,
			Images:     images,
			Cost:       s.costPer * float64(r.Quantity),
			ProviderID: s.id,
		}
	}
	return out
}

func newTestOrchestrator(t *testing.T, adapters ...Adapter) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(OrchestratorOptions{
		Registry: NewRegistry(adapters...),
		Catalog:  selector.DefaultCatalog(),
		Logger:   infra.NopLogger(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

func TestOrchestratorSplitsOversizedQuantity(t *testing.T) {
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, costPer: 0.003}
	o := newTestOrchestrator(t, replicateStub)

	outcome, err := o.GenerateProject(context.Background(), "bakery", []domain.ImageRequirement{{
		Category:   "product",
		Quantity:   9,
		Dimensions: domain.Dimensions{Width: 1024, Height: 1024},
		Priority:   domain.PriorityMedium,
	}}, Options{})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}

	if len(replicateStub.requests) != 3 {
		t.Fatalf("expected 3 chunked requests, got %d", len(replicateStub.requests))
	}
	quantities := []int{replicateStub.requests[0].Quantity, replicateStub.requests[1].Quantity, replicateStub.requests[2].Quantity}
	if quantities[0] != 4 || quantities[1] != 4 || quantities[2] != 1 {
		t.Fatalf("expected chunks 4/4/1, got %v", quantities)
	}
	if len(outcome.Images) != 9 {
		t.Fatalf("expected 9 images, got %d", len(outcome.Images))
	}
}

func TestOrchestratorUpgradesOneHighPriorityUnit(t *testing.T) {
	openaiStub := &stubAdapter{id: selector.ProviderOpenAI, costPer: 0.08}
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, costPer: 0.003}
	o := newTestOrchestrator(t, openaiStub, replicateStub)

	outcome, err := o.GenerateProject(context.Background(), "bakery", []domain.ImageRequirement{{
		Category:   "product",
		Quantity:   3,
		Dimensions: domain.Dimensions{Width: 1024, Height: 1024},
		Priority:   domain.PriorityHigh,
	}}, Options{})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}

	if len(openaiStub.requests) != 1 || openaiStub.requests[0].Quantity != 1 {
		t.Fatalf("expected one high-fidelity unit, got %+v", openaiStub.requests)
	}
	if openaiStub.requests[0].ModelID != selector.ModelDallE3 {
		t.Fatalf("expected high-fidelity model, got %q", openaiStub.requests[0].ModelID)
	}
	if len(replicateStub.requests) != 1 || replicateStub.requests[0].Quantity != 2 {
		t.Fatalf("expected remainder of 2 on the general provider, got %+v", replicateStub.requests)
	}
	if len(outcome.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(outcome.Images))
	}
}

func TestOrchestratorRecordsAdapterFailuresAsWarnings(t *testing.T) {
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, fail: true}
	o := newTestOrchestrator(t, replicateStub)

	outcome, err := o.GenerateProject(context.Background(), "bakery", []domain.ImageRequirement{{
		Category:   "product",
		Quantity:   2,
		Dimensions: domain.Dimensions{Width: 1024, Height: 1024},
	}}, Options{})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}
	if len(outcome.Images) != 0 {
		t.Fatalf("expected no images, got %d", len(outcome.Images))
	}
	if len(outcome.Warnings) != 1 || !strings.Contains(outcome.Warnings[0], "provider down") {
		t.Fatalf("expected failure warning, got %v", outcome.Warnings)
	}
}

func TestOrchestratorSkipsUnconfiguredProvider(t *testing.T) {
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, costPer: 0.003}
	o := newTestOrchestrator(t, replicateStub)

	// Photorealistic high priority routes to the unconfigured provider.
	outcome, err := o.GenerateProject(context.Background(), "bakery", []domain.ImageRequirement{{
		Category:   "hero",
		Quantity:   1,
		Style:      "photorealistic",
		Priority:   domain.PriorityHigh,
		Dimensions: domain.Dimensions{Width: 1792, Height: 1024},
	}}, Options{})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}
	if len(outcome.Images) != 0 {
		t.Fatalf("expected no images, got %d", len(outcome.Images))
	}
	if len(outcome.Warnings) == 0 || !strings.Contains(outcome.Warnings[0], "not configured") {
		t.Fatalf("expected unconfigured-provider warning, got %v", outcome.Warnings)
	}
}

func TestOrchestratorMergesBeforeAfterPairs(t *testing.T) {
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, costPer: 0.003}
	transform := newTransformAdapter(&pairedClient{})
	o, err := NewOrchestrator(OrchestratorOptions{
		Registry:  NewRegistry(replicateStub),
		Transform: transform,
		Catalog:   selector.DefaultCatalog(),
		Logger:    infra.NopLogger(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	outcome, err := o.GenerateProject(context.Background(), "restaurant", []domain.ImageRequirement{{
		Category:   "before-after",
		Subject:    "dining room",
		Quantity:   1,
		Dimensions: domain.Dimensions{Width: 1024, Height: 1024},
	}}, Options{GenerateBeforeAfter: true})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}

	if len(outcome.Pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(outcome.Pairs))
	}
	// One base image plus the merged before and after frames.
	if len(outcome.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(outcome.Images))
	}
}

func TestOrchestratorBeforeAfterSkippedWithoutFlag(t *testing.T) {
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, costPer: 0.003}
	transformClient := &pairedClient{}
	o, err := NewOrchestrator(OrchestratorOptions{
		Registry:  NewRegistry(replicateStub),
		Transform: newTransformAdapter(transformClient),
		Catalog:   selector.DefaultCatalog(),
		Logger:    infra.NopLogger(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}

	outcome, err := o.GenerateProject(context.Background(), "restaurant", []domain.ImageRequirement{{
		Category:   "before-after",
		Quantity:   1,
		Dimensions: domain.Dimensions{Width: 1024, Height: 1024},
	}}, Options{})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}
	if len(transformClient.calls) != 0 {
		t.Fatalf("transform must be skipped without the flag, got %d calls", len(transformClient.calls))
	}
	if len(outcome.Images) != 1 {
		t.Fatalf("expected 1 base image, got %d", len(outcome.Images))
	}
}

func TestOrchestratorReroutesDisabledProvider(t *testing.T) {
	openaiStub := &stubAdapter{id: selector.ProviderOpenAI, costPer: 0.08}
	replicateStub := &stubAdapter{id: selector.ProviderReplicate, costPer: 0.003}
	o := newTestOrchestrator(t, openaiStub, replicateStub)

	_, err := o.GenerateProject(context.Background(), "bakery", []domain.ImageRequirement{{
		Category:   "hero",
		Quantity:   1,
		Style:      "photorealistic",
		Priority:   domain.PriorityHigh,
		Dimensions: domain.Dimensions{Width: 1792, Height: 1024},
	}}, Options{DisabledProviders: []string{selector.ProviderOpenAI}})
	if err != nil {
		t.Fatalf("GenerateProject: %v", err)
	}
	if len(openaiStub.requests) != 0 {
		t.Fatalf("disabled provider must not be called, got %+v", openaiStub.requests)
	}
	if len(replicateStub.requests) != 1 || replicateStub.requests[0].ModelID != selector.ModelFluxSchnell {
		t.Fatalf("expected reroute to flux-schnell, got %+v", replicateStub.requests)
	}
}

func TestEstimateProjectCost(t *testing.T) {
	replicateStub := &stubAdapter{id: selector.ProviderReplicate}
	o := newTestOrchestrator(t, replicateStub)

	reqs := []domain.ImageRequirement{{
		Category:   "product",
		Quantity:   4,
		Dimensions: domain.Dimensions{Width: 1024, Height: 1024},
	}}
	first := o.EstimateProjectCost(reqs, Options{})
	second := o.EstimateProjectCost(reqs, Options{})
	if first != second {
		t.Fatalf("estimate must be deterministic: %v vs %v", first, second)
	}
	if first != 0.01 {
		t.Fatalf("expected 0.01 for 4 flux-schnell images, got %v", first)
	}
	if len(replicateStub.requests) != 0 {
		t.Fatal("estimation must not call providers")
	}
}
