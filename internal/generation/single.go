package generation

import (
	"context"
	"fmt"
	"time"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/providers/openai"
	"assetgen/internal/selector"
)

// singleImageClient is the slice of the OpenAI client the adapter needs.
type singleImageClient interface {
	GenerateImage(ctx context.Context, req openai.ImageRequest) (*openai.ImageAsset, error)
	Model() string
}

// SingleImageAdapter drives providers with a hard limit of one image per
// call. A requirement's quantity becomes that many sequential calls; unit
// failures are logged and skipped, and a request succeeds when at least one
// unit was produced.
type SingleImageAdapter struct {
	client     singleImageClient
	providerID string
	prices     selector.PriceTable
	pace       *pacer
	maxRetries int
	baseDelay  time.Duration
	capDelay   time.Duration
	sleep      sleepFunc
	logger     infra.Logger
}

// NewSingleImageAdapter wires a single-image provider client into the
// adapter contract.
func NewSingleImageAdapter(client singleImageClient, prices selector.PriceTable, logger infra.Logger) *SingleImageAdapter {
	return &SingleImageAdapter{
		client:     client,
		providerID: selector.ProviderOpenAI,
		prices:     prices,
		pace:       newPacer(750 * time.Millisecond),
		maxRetries: defaultMaxRetries,
		baseDelay:  time.Second,
		capDelay:   30 * time.Second,
		sleep:      defaultSleep,
		logger:     logger,
	}
}

// ProviderID implements Adapter.
func (a *SingleImageAdapter) ProviderID() string { return a.providerID }

// Generate implements Adapter: one result per request, in input order.
func (a *SingleImageAdapter) Generate(ctx context.Context, requests []domain.GenerationRequest) []domain.GenerationResult {
	results := make([]domain.GenerationResult, len(requests))
	for i, req := range requests {
		results[i] = a.generateOne(ctx, req)
	}
	return results
}

func (a *SingleImageAdapter) generateOne(ctx context.Context, req domain.GenerationRequest) domain.GenerationResult {
	started := time.Now()
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	model := req.ModelID
	if model == "" {
		model = a.client.Model()
	}
	size := fmt.Sprintf("%dx%d", req.Width, req.Height)
	quality := stringParam(req.ExtraParams, "quality")
	style := stringParam(req.ExtraParams, "style")
	category := stringParam(req.ExtraParams, "category")

	images := make([]domain.GeneratedImage, 0, quantity)
	var lastErr error
	for unit := 0; unit < quantity; unit++ {
		// Fixed pacing between sequential provider calls, independent
		// of retry backoff and spanning Generate invocations.
		if d := a.pace.reserve(); d > 0 {
			if err := a.sleep(ctx, d); err != nil {
				lastErr = err
				break
			}
		}

		var asset *openai.ImageAsset
		err := withRetry(ctx, a.maxRetries, a.baseDelay, a.capDelay, a.sleep, func() error {
			var callErr error
			asset, callErr = a.client.GenerateImage(ctx, openai.ImageRequest{
				Model:   model,
				Prompt:  req.Prompt,
				Size:    size,
				Quality: quality,
				Style:   style,
			})
			return callErr
		})
		if err != nil {
			lastErr = err
			a.logger.Warn().Err(err).
				Str("provider", a.providerID).
				Str("model", model).
				Int("unit", unit).
				Msg("generation: unit failed, skipping")
			continue
		}

		generatedAt := time.Now()
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
				Params:         map[string]any{"quality": quality, "style": style, "size": size},
				GeneratedAt:    generatedAt,
			},
		})
	}

	elapsed := time.Since(started).Milliseconds()
	if len(images) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("generation: no images produced")
		}
		return failedResult(a.providerID, elapsed, lastErr)
	}

	result := domain.GenerationResult{
		Success:          true,
		Images:           images,
		Cost:             a.prices.UnitCost(model, quality, req.Width, req.Height) * float64(len(images)),
		ProcessingTimeMs: elapsed,
		ProviderID:       a.providerID,
	}
	if len(images) < quantity {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("produced %d of %d requested images; failed units were skipped", len(images), quantity))
	}
	return result
}

func stringParam(params map[string]any, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
