package generation

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/providers/replicate"
	"assetgen/internal/selector"
)

// PairRequest describes one before/after transform run.
type PairRequest struct {
	BusinessType string
	Subject      string
	Width        int
	Height       int
	// Pairs is the number of before/after pairs to produce. Defaults to 1.
	Pairs int
}

// TransformPair is one completed before/after pair with its heuristic
// coherence score.
type TransformPair struct {
	Index     int
	Before    domain.GeneratedImage
	After     domain.GeneratedImage
	Coherence float64
}

// TransformResult aggregates a transform run. Skipped pairs are reported in
// Warnings rather than failing the run.
type TransformResult struct {
	Pairs            []TransformPair
	Cost             float64
	ProcessingTimeMs int64
	Warnings         []string
}

// TransformAdapter produces before/after image pairs. Each pair is a small
// state machine: a text-to-image call for the "before" frame, then an
// image-to-image call that consumes the before frame's URL as its source.
// A failed before call skips the whole pair; a failed after call drops the
// pair as well since the before frame alone has no use.
type TransformAdapter struct {
	client     batchImageClient
	providerID string
	model      string
	prices     selector.PriceTable
	pace       *pacer
	maxRetries int
	baseDelay  time.Duration
	capDelay   time.Duration
	sleep      sleepFunc
	logger     infra.Logger
}

// NewTransformAdapter wires the image-to-image model into the pair state
// machine.
func NewTransformAdapter(client batchImageClient, prices selector.PriceTable, logger infra.Logger) *TransformAdapter {
	return &TransformAdapter{
		client:     client,
		providerID: selector.ProviderReplicate,
		model:      selector.ModelFluxImg2Img,
		prices:     prices,
		pace:       newPacer(750 * time.Millisecond),
		maxRetries: defaultMaxRetries,
		baseDelay:  time.Second,
		capDelay:   60 * time.Second,
		sleep:      defaultSleep,
		logger:     logger,
	}
}

// PairSeed derives the deterministic seed for a pair's before frame so
// repeated runs for the same business type reproduce the same imagery.
func PairSeed(businessType string, pairIndex int) int64 {
	h := fnv.New32a()
	h.Write([]byte(businessType))
	return int64(h.Sum32())*1000 + int64(pairIndex)
}

// GeneratePairs runs the before/after state machine for each requested pair.
func (a *TransformAdapter) GeneratePairs(ctx context.Context, req PairRequest) (*TransformResult, error) {
	started := time.Now()
	pairs := req.Pairs
	if pairs <= 0 {
		pairs = 1
	}
	width, height := req.Width, req.Height
	if width <= 0 || height <= 0 {
		width, height = 1024, 1024
	}
	beforePrompt, afterPrompt := BuildPairPrompts(req.BusinessType, req.Subject)

	result := &TransformResult{}
	for idx := 0; idx < pairs; idx++ {
		if d := a.pace.reserve(); d > 0 {
			if err := a.sleep(ctx, d); err != nil {
				return result, err
			}
		}
		seed := PairSeed(req.BusinessType, idx)

		before, beforeMs, err := a.call(ctx, replicate.PredictionRequest{
			Model:      a.model,
			Prompt:     beforePrompt,
			Width:      width,
			Height:     height,
			NumOutputs: 1,
			Seed:       &seed,
		}, idx, "before")
		if err != nil {
			result.Warnings = append(result.Warnings, pairSkipWarning(idx, "before", err))
			continue
		}

		if d := a.pace.reserve(); d > 0 {
			if err := a.sleep(ctx, d); err != nil {
				return result, err
			}
		}
		after, afterMs, err := a.call(ctx, replicate.PredictionRequest{
			Model:          a.model,
			Prompt:         afterPrompt,
			Width:          width,
			Height:         height,
			NumOutputs:     1,
			SourceImageURL: before.URL,
		}, idx, "after")
		if err != nil {
			result.Warnings = append(result.Warnings, pairSkipWarning(idx, "after", err))
			continue
		}

		result.Pairs = append(result.Pairs, TransformPair{
			Index:     idx,
			Before:    *before,
			After:     *after,
			Coherence: coherenceScore(true, true, beforeMs, afterMs, 1, 1),
		})
		result.Cost += a.prices.BatchCost(a.model, 2)
	}

	result.ProcessingTimeMs = time.Since(started).Milliseconds()
	return result, nil
}

// call issues one provider call with retry and converts the first returned
// asset into a GeneratedImage.
func (a *TransformAdapter) call(ctx context.Context, pred replicate.PredictionRequest, pairIndex int, stage string) (*domain.GeneratedImage, int64, error) {
	started := time.Now()
	var assets []replicate.ImageAsset
	err := withRetry(ctx, a.maxRetries, a.baseDelay, a.capDelay, a.sleep, func() error {
		var callErr error
		assets, callErr = a.client.GenerateImages(ctx, pred)
		return callErr
	})
	elapsed := time.Since(started).Milliseconds()
	if err != nil {
		a.logger.Warn().Err(err).
			Int("pair", pairIndex).
			Str("stage", stage).
			Msg("generation: transform call failed")
		return nil, elapsed, err
	}
	if len(assets) == 0 {
		return nil, elapsed, fmt.Errorf("generation: transform %s call returned no outputs", stage)
	}
	asset := assets[0]
	generatedAt := time.Now()
	return &domain.GeneratedImage{
		URL:      asset.URL,
		Filename: imageFilename("before-after-"+stage, nextSequence(), domain.Dimensions{Width: asset.Width, Height: asset.Height}, generatedAt),
		Dimensions: domain.Dimensions{
			Width:  asset.Width,
			Height: asset.Height,
		},
		Seed: pred.Seed,
		Metadata: domain.ImageMetadata{
			ProviderID:     a.providerID,
			Model:          pred.Model,
			Prompt:         pred.Prompt,
			NegativePrompt: pred.NegativePrompt,
			Params:         map[string]any{"stage": stage, "pair": pairIndex},
			GeneratedAt:    generatedAt,
		},
	}, elapsed, nil
}

// coherenceScore estimates how visually consistent a pair is from call
// outcomes alone. Base 0.7, plus 0.2 when both calls succeeded, 0.1 when the
// two calls finished within 5s of each other, 0.1 when both produced at
// least one image, capped at 1.
func coherenceScore(beforeOK, afterOK bool, beforeMs, afterMs int64, beforeImages, afterImages int) float64 {
	// Summed in tenths so the score stays exact.
	tenths := 7
	if beforeOK && afterOK {
		tenths += 2
	}
	diff := beforeMs - afterMs
	if diff < 0 {
		diff = -diff
	}
	if diff < 5000 {
		tenths++
	}
	if beforeImages >= 1 && afterImages >= 1 {
		tenths++
	}
	if tenths > 10 {
		tenths = 10
	}
	return float64(tenths) / 10
}

func pairSkipWarning(idx int, stage string, err error) string {
	return fmt.Sprintf("pair %d skipped: %s generation failed: %v", idx, stage, err)
}
