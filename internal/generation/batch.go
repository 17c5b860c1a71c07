package generation

import (
	"context"
	"fmt"
	"time"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/providers/replicate"
	"assetgen/internal/selector"
)

// batchImageClient is the slice of the Replicate client the adapter needs.
type batchImageClient interface {
	GenerateImages(ctx context.Context, req replicate.PredictionRequest) ([]replicate.ImageAsset, error)
	Model() string
}

// BatchAdapter drives providers that return several images from one call.
// Requests asking for more than the provider's batch limit are capped with a
// warning; the orchestrator splits oversized quantities before they get here.
type BatchAdapter struct {
	client       batchImageClient
	providerID   string
	maxBatchSize int
	prices       selector.PriceTable
	pace         *pacer
	maxRetries   int
	baseDelay    time.Duration
	capDelay     time.Duration
	sleep        sleepFunc
	logger       infra.Logger
}

// NewBatchAdapter wires a batch-capable provider client into the adapter
// contract.
func NewBatchAdapter(client batchImageClient, prices selector.PriceTable, logger infra.Logger) *BatchAdapter {
	info := selector.DefaultCatalog().Providers[selector.ProviderReplicate]
	return &BatchAdapter{
		client:       client,
		providerID:   selector.ProviderReplicate,
		maxBatchSize: info.MaxBatchSize,
		prices:       prices,
		pace:         newPacer(750 * time.Millisecond),
		maxRetries:   defaultMaxRetries,
		baseDelay:    time.Second,
		capDelay:     60 * time.Second,
		sleep:        defaultSleep,
		logger:       logger,
	}
}

// ProviderID implements Adapter.
func (a *BatchAdapter) ProviderID() string { return a.providerID }

// Generate implements Adapter: one result per request, in input order.
func (a *BatchAdapter) Generate(ctx context.Context, requests []domain.GenerationRequest) []domain.GenerationResult {
	results := make([]domain.GenerationResult, len(requests))
	for i, req := range requests {
		if d := a.pace.reserve(); d > 0 {
			if err := a.sleep(ctx, d); err != nil {
				results[i] = failedResult(a.providerID, 0, err)
				continue
			}
		}
		results[i] = a.generateBatch(ctx, req)
	}
	return results
}

func (a *BatchAdapter) generateBatch(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	started := time.Now()
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	var warnings []string
	if quantity > a.maxBatchSize {
		warnings = append(warnings,
			fmt.Sprintf("quantity %d exceeds provider batch limit %d; capped", quantity, a.maxBatchSize))
		a.logger.Warn().
			Str("provider", a.providerID).
			Int("requested", quantity).
			Int("limit", a.maxBatchSize).
			Msg("generation: batch quantity capped")
		quantity = a.maxBatchSize
	}
	model := req.ModelID
	if model == "" {
		model = a.client.Model()
	}

	var assets []replicate.ImageAsset
	err := withRetry(ctx, a.maxRetries, a.baseDelay, a.capDelay, a.sleep, func() error {
		var callErr error
		assets, callErr = a.client.GenerateImages(ctx, replicate.PredictionRequest{
			Model:          model,
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
			Width:          req.Width,
			Height:         req.Height,
			NumOutputs:     quantity,
			Seed:           req.Seed,
			SourceImageURL: stringParam(req.ExtraParams, "source_image_url"),
			ExtraInput:     extraInput(req.ExtraParams),
		})
		return callErr
	})
	elapsed := time.Since(started).Milliseconds()
	if err != nil {
		return failedResult(a.providerID, elapsed, err)
	}
	if len(assets) == 0 {
		return failedResult(a.providerID, elapsed, fmt.Errorf("generation: prediction returned no outputs"))
	}

	category := stringParam(req.ExtraParams, "category")
	generatedAt := time.Now()
	images := make([]domain.GeneratedImage, 0, len(assets))
	for _, asset := range assets {
		images = append(images, domain.GeneratedImage{
			URL:      asset.URL,
			Filename: imageFilename(category, nextSequence(), domain.Dimensions{Width: asset.Width, Height: asset.Height}, generatedAt),
			Dimensions: domain.Dimensions{
				Width:  asset.Width,
				Height: asset.Height,
			},
			Seed: req.Seed,
			Metadata: domain.ImageMetadata{
				ProviderID:     a.providerID,
				Model:          model,
				Prompt:         req.Prompt,
				NegativePrompt: req.NegativePrompt,
				Params:         map[string]any{"num_outputs": quantity},
				GeneratedAt:    generatedAt,
			},
		})
	}

	return domain.GenerationResult{
		Success:          true,
		Images:           images,
		Cost:             a.prices.BatchCost(model, len(images)),
		ProcessingTimeMs: elapsed,
		Warnings:         warnings,
		ProviderID:       a.providerID,
	}
}

// extraInput strips the keys the adapter consumes itself and forwards the
// rest to the provider untouched.
func extraInput(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch k {
		case "category", "source_image_url", "quality", "style":
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
