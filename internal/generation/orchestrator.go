package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/selector"
)

// Options shape one project's generation run.
type Options struct {
	// Style and Mood are appended to every prompt.
	Style string
	Mood  string
	// Quantity overrides each requirement's quantity when > 0.
	Quantity int
	// GenerateBeforeAfter enables the transform pair run for requirements
	// in the before-after category.
	GenerateBeforeAfter bool
	// BeforeAfterPairs is the number of pairs per before-after requirement.
	// Defaults to 1.
	BeforeAfterPairs int
	// DisabledProviders excludes provider families for this run; selections
	// falling on one are rerouted to the remaining family.
	DisabledProviders []string
}

func (o Options) providerDisabled(id string) bool {
	for _, d := range o.DisabledProviders {
		if d == id {
			return true
		}
	}
	return false
}

// ProjectOutcome is everything one project run produced.
type ProjectOutcome struct {
	Images           []domain.GeneratedImage
	Pairs            []TransformPair
	Cost             float64
	ProcessingTimeMs int64
	Warnings         []string
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	Registry  Registry
	Transform *TransformAdapter
	Catalog   selector.Catalog
	Logger    infra.Logger
}

// Orchestrator runs one project's requirement set: selection, request
// shaping, adapter dispatch, and cost/image accumulation. Adapters may
// return fewer images than asked on partial failure; the orchestrator
// records whatever was produced and never retries at this level.
type Orchestrator struct {
	registry  Registry
	transform *TransformAdapter
	catalog   selector.Catalog
	logger    infra.Logger
}

// NewOrchestrator validates the wiring and returns an orchestrator.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	if len(opts.Registry) == 0 {
		return nil, fmt.Errorf("generation: orchestrator requires at least one adapter")
	}
	if opts.Catalog.Providers == nil {
		opts.Catalog = selector.DefaultCatalog()
	}
	return &Orchestrator{
		registry:  opts.Registry,
		transform: opts.Transform,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
	}, nil
}

// routedRequest pairs a shaped request with the provider that will serve it.
type routedRequest struct {
	providerID  string
	requirement int
	request     domain.GenerationRequest
}

// GenerateProject runs the full requirement set for one project.
func (o *Orchestrator) GenerateProject(ctx context.Context, businessType string, requirements []domain.ImageRequirement, opts Options) (*ProjectOutcome, error) {
	started := time.Now()
	outcome := &ProjectOutcome{}

	routed := make([]routedRequest, 0, len(requirements))
	for i, req := range requirements {
		if opts.Quantity > 0 {
			req.Quantity = opts.Quantity
		}
		routed = append(routed, o.planRequirement(i, req, opts)...)
	}

	// Dispatch per provider in one adapter call each, preserving order.
	byProvider := make(map[string][]routedRequest)
	order := make([]string, 0, 2)
	for _, r := range routed {
		if _, seen := byProvider[r.providerID]; !seen {
			order = append(order, r.providerID)
		}
		byProvider[r.providerID] = append(byProvider[r.providerID], r)
	}
	for _, providerID := range order {
		batch := byProvider[providerID]
		adapter, err := o.registry.Lookup(providerID)
		if err != nil {
			outcome.Warnings = append(outcome.Warnings, err.Error())
			continue
		}
		requests := make([]domain.GenerationRequest, len(batch))
		for i, r := range batch {
			requests[i] = r.request
		}
		results := adapter.Generate(ctx, requests)
		for i, res := range results {
			if !res.Success {
				outcome.Warnings = append(outcome.Warnings,
					fmt.Sprintf("requirement %d (%s): %s", batch[i].requirement, providerID, res.Error))
				o.logger.Warn().
					Str("provider", providerID).
					Int("requirement", batch[i].requirement).
					Str("error", res.Error).
					Msg("generation: requirement produced no images")
				continue
			}
			outcome.Images = append(outcome.Images, res.Images...)
			outcome.Cost += res.Cost
			outcome.Warnings = append(outcome.Warnings, res.Warnings...)
		}
	}

	if opts.GenerateBeforeAfter && o.transform != nil {
		for _, req := range requirements {
			if !strings.EqualFold(strings.TrimSpace(req.Category), "before-after") {
				continue
			}
			pairs, err := o.transform.GeneratePairs(ctx, PairRequest{
				BusinessType: businessType,
				Subject:      req.Subject,
				Width:        req.Dimensions.Width,
				Height:       req.Dimensions.Height,
				Pairs:        opts.BeforeAfterPairs,
			})
			if err != nil {
				return outcome, err
			}
			for _, pair := range pairs.Pairs {
				outcome.Images = append(outcome.Images, pair.Before, pair.After)
			}
			outcome.Pairs = append(outcome.Pairs, pairs.Pairs...)
			outcome.Cost += pairs.Cost
			outcome.Warnings = append(outcome.Warnings, pairs.Warnings...)
		}
	}

	outcome.Cost = domain.RoundCost(outcome.Cost)
	outcome.ProcessingTimeMs = time.Since(started).Milliseconds()
	return outcome, nil
}

// planRequirement maps one requirement onto provider-shaped requests:
// selection, size/quality/style resolution, a high-fidelity upgrade for one
// unit of high-priority requirements, and splitting of quantities above the
// provider batch limit.
func (o *Orchestrator) planRequirement(index int, req domain.ImageRequirement, opts Options) []routedRequest {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	sel := selector.SelectProvider(req, false)
	if opts.providerDisabled(sel.ProviderID) {
		sel = rerouteSelection(sel)
	}

	var routed []routedRequest
	hifi := selector.HighFidelitySelection()
	if req.Priority == domain.PriorityHigh && quantity > 1 &&
		sel.ProviderID != hifi.ProviderID && !opts.providerDisabled(hifi.ProviderID) {
		routed = append(routed, o.shape(index, req, opts, hifi, 1)...)
		quantity--
	}
	routed = append(routed, o.shape(index, req, opts, sel, quantity)...)
	return routed
}

// rerouteSelection swaps a selection onto the other provider family when its
// own family is disabled for the run.
func rerouteSelection(sel selector.Selection) selector.Selection {
	if sel.ProviderID == selector.ProviderOpenAI {
		return selector.Selection{ProviderID: selector.ProviderReplicate, ModelID: selector.ModelFluxSchnell}
	}
	return selector.Selection{ProviderID: selector.ProviderOpenAI, ModelID: selector.ModelDallE3}
}

// shape builds the requests for one provider, chunked at its batch limit.
func (o *Orchestrator) shape(index int, req domain.ImageRequirement, opts Options, sel selector.Selection, quantity int) []routedRequest {
	info := o.catalog.Providers[sel.ProviderID]
	size := selector.BestSize(req, info.SupportedSizes)
	prompt := BuildPrompt(req, opts.Style, opts.Mood)
	negative := BuildNegativePrompt(req)
	extra := map[string]any{
		"category": req.Category,
		"quality":  selector.BestQuality(req),
		"style":    selector.BestStyleFlag(req),
	}

	chunk := info.MaxBatchSize
	if chunk <= 0 {
		chunk = 1
	}
	var routed []routedRequest
	for quantity > 0 {
		n := quantity
		if n > chunk {
			n = chunk
		}
		routed = append(routed, routedRequest{
			providerID:  sel.ProviderID,
			requirement: index,
			request: domain.GenerationRequest{
				ProviderID:     sel.ProviderID,
				ModelID:        sel.ModelID,
				Prompt:         prompt,
				NegativePrompt: negative,
				Width:          size.Width,
				Height:         size.Height,
				Quantity:       n,
				ExtraParams:    extra,
			},
		})
		quantity -= n
	}
	return routed
}

// EstimateProjectCost prices a requirement set before any call is made,
// using the same selection rules the run itself will apply.
func (o *Orchestrator) EstimateProjectCost(requirements []domain.ImageRequirement, opts Options) float64 {
	var total float64
	for i, req := range requirements {
		if opts.Quantity > 0 {
			req.Quantity = opts.Quantity
		}
		for _, r := range o.planRequirement(i, req, opts) {
			if r.providerID == selector.ProviderOpenAI {
				quality := stringParam(r.request.ExtraParams, "quality")
				total += o.catalog.Prices.UnitCost(r.request.ModelID, quality, r.request.Width, r.request.Height) * float64(r.request.Quantity)
				continue
			}
			total += o.catalog.Prices.BatchCost(r.request.ModelID, r.request.Quantity)
		}
	}
	return domain.RoundCost(total)
}

// TotalRequirementImages is the target image count for a requirement set,
// used for time estimates at submit.
func TotalRequirementImages(requirements []domain.ImageRequirement, opts Options) int {
	total := 0
	for _, req := range requirements {
		q := req.Quantity
		if opts.Quantity > 0 {
			q = opts.Quantity
		}
		if q <= 0 {
			q = 1
		}
		total += q
	}
	return total
}
