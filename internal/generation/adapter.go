// Package generation turns image requirements into provider requests and
// executes them against heterogeneous providers with provider-specific
// retry, pacing, and cost accounting.
package generation

import (
	"context"
	"fmt"
	"sort"

	"assetgen/internal/domain"
)

// Adapter executes generation requests against one provider family. The
// contract: one result per request, in input order, and no errors escape —
// every failure is captured into a GenerationResult with Success=false.
type Adapter interface {
	ProviderID() string
	Generate(ctx context.Context, requests []domain.GenerationRequest) []domain.GenerationResult
}

// Registry maps provider ids to their adapters.
type Registry map[string]Adapter

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) Registry {
	r := make(Registry, len(adapters))
	for _, a := range adapters {
		r[a.ProviderID()] = a
	}
	return r
}

// Lookup returns the adapter for a provider id.
func (r Registry) Lookup(providerID string) (Adapter, error) {
	a, ok := r[providerID]
	if !ok {
		return nil, fmt.Errorf("generation: provider %q not configured", providerID)
	}
	return a, nil
}

// ProviderIDs lists the configured providers in stable order.
func (r Registry) ProviderIDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// failedResult captures an error into the never-throwing result shape.
func failedResult(providerID string, elapsed int64, err error) domain.GenerationResult {
	return domain.GenerationResult{
		Success:          false,
		ProviderID:       providerID,
		ProcessingTimeMs: elapsed,
		Error:            err.Error(),
	}
}
