// Package variants turns one generated image into a deterministic matrix of
// resized, re-encoded derivatives plus an optional thumbnail, with every
// failure isolated to the smallest unit it occurred in.
package variants

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path"
	"strings"
	"time"

	_ "github.com/kolesa-team/go-webp/decoder"

	"assetgen/internal/domain"
	"assetgen/internal/infra"
	"assetgen/internal/storage"
)

// ErrNoVariants is returned when not a single derivative of an image could
// be produced.
var ErrNoVariants = errors.New("variants: no variants produced")

// thumbnailSpec is the implicit thumbnail emitted when thumbnails are
// requested and the size matrix has no explicit entry for them.
var thumbnailSpec = domain.SizeSpec{Name: "thumbnail", Width: 200, Height: 200, Fit: domain.FitCover}

// defaultSizes is the matrix applied when the caller specifies none.
var defaultSizes = []domain.SizeSpec{
	{Name: "large", Width: 1920, Height: 1080, Fit: domain.FitInside, WithoutEnlargement: true},
	{Name: "medium", Width: 1024, Height: 1024, Fit: domain.FitInside, WithoutEnlargement: true},
	{Name: "small", Width: 512, Height: 512, Fit: domain.FitInside, WithoutEnlargement: true},
}

// defaultFormats is applied when the caller specifies none.
var defaultFormats = []domain.Format{domain.FormatWebP, domain.FormatJPEG}

// ProcessorOptions configures a Processor.
type ProcessorOptions struct {
	Sink       storage.AssetSink
	HTTPClient *http.Client
	Logger     infra.Logger
}

// Processor executes the variant pipeline for single images: download once,
// decode, then emit the size×format cross product.
type Processor struct {
	fetcher *Fetcher
	sink    storage.AssetSink
	logger  infra.Logger
}

// NewProcessor wires the variant pipeline.
func NewProcessor(opts ProcessorOptions) (*Processor, error) {
	if opts.Sink == nil {
		return nil, errors.New("variants: processor requires an asset sink")
	}
	return &Processor{
		fetcher: NewFetcher(opts.HTTPClient),
		sink:    opts.Sink,
		logger:  opts.Logger,
	}, nil
}

// Process downloads img once and writes every requested variant under
// opts.OutputDir. A variant that fails to encode or store is logged and
// omitted; the call errors only when nothing at all could be produced.
func (p *Processor) Process(ctx context.Context, img domain.GeneratedImage, opts domain.ProcessingOptions) (*domain.ProcessedImage, error) {
	started := time.Now()

	raw, err := p.fetcher.Fetch(ctx, img.URL)
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("variants: decode source image: %w", err)
	}

	sizes := opts.Sizes
	if len(sizes) == 0 {
		sizes = defaultSizes
	}
	formats := opts.Formats
	if len(formats) == 0 {
		formats = defaultFormats
	}
	baseName := strings.TrimSuffix(img.Filename, path.Ext(img.Filename))
	if baseName == "" {
		baseName = "image"
	}

	processed := &domain.ProcessedImage{
		OriginalURL:      img.URL,
		OriginalFilename: img.Filename,
		Metadata:         img.Metadata,
	}

	if opts.PreserveOriginal {
		p.record(ctx, processed, opts.OutputDir, img.Filename, formatFromFilename(img.Filename), raw,
			src.Bounds().Dx(), src.Bounds().Dy())
	}

	for _, size := range sizes {
		resized := resizeToFit(src, size)
		if opts.Watermark != nil {
			applyWatermark(resized, *opts.Watermark)
		}
		for _, format := range formats {
			data, err := encodeImage(resized, format, opts.Quality, opts.OptimizationLevel)
			if err != nil {
				p.logger.Warn().Err(err).
					Str("size", size.Name).
					Str("format", string(format)).
					Msg("variants: variant encode failed, omitting")
				continue
			}
			filename := fmt.Sprintf("%s_%s.%s", baseName, size.Name, formatExt(format))
			p.record(ctx, processed, opts.OutputDir, filename, format, data,
				resized.Bounds().Dx(), resized.Bounds().Dy())
		}
	}

	if opts.GenerateThumbnails && !hasThumbnailSize(sizes) {
		thumb := resizeToFit(src, thumbnailSpec)
		format := formats[0]
		if data, err := encodeImage(thumb, format, opts.Quality, opts.OptimizationLevel); err != nil {
			p.logger.Warn().Err(err).Msg("variants: thumbnail encode failed, omitting")
		} else {
			filename := fmt.Sprintf("%s_thumbnail.%s", baseName, formatExt(format))
			p.record(ctx, processed, opts.OutputDir, filename, format, data, 200, 200)
		}
	}

	if len(processed.Variants) == 0 {
		return nil, ErrNoVariants
	}

	processed.ProcessingTimeMs = time.Since(started).Milliseconds()
	p.writeSidecar(ctx, opts.OutputDir, baseName, processed)
	return processed, nil
}

// record stores one variant and appends it to the aggregate. Store failures
// are logged and the variant is dropped.
func (p *Processor) record(ctx context.Context, processed *domain.ProcessedImage, dir, filename string, format domain.Format, data []byte, width, height int) {
	key := path.Join(dir, filename)
	stored, err := p.sink.Write(ctx, key, data)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("variants: variant write failed, omitting")
		return
	}
	processed.Variants = append(processed.Variants, domain.ImageVariant{
		Filename:  filename,
		Path:      stored,
		Format:    format,
		Width:     width,
		Height:    height,
		SizeBytes: int64(len(data)),
	})
	processed.TotalSizeBytes += int64(len(data))
}

// writeSidecar persists the metadata JSON next to the variants. Best effort.
func (p *Processor) writeSidecar(ctx context.Context, dir, baseName string, processed *domain.ProcessedImage) {
	data, err := json.MarshalIndent(processed, "", "  ")
	if err != nil {
		p.logger.Warn().Err(err).Msg("variants: marshal sidecar metadata")
		return
	}
	key := path.Join(dir, baseName+".metadata.json")
	if _, err := p.sink.Write(ctx, key, data); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("variants: write sidecar metadata")
	}
}

func hasThumbnailSize(sizes []domain.SizeSpec) bool {
	for _, s := range sizes {
		if strings.EqualFold(s.Name, "thumbnail") {
			return true
		}
	}
	return false
}

func formatExt(f domain.Format) string {
	if f == domain.FormatJPEG {
		return "jpg"
	}
	return string(f)
}

func formatFromFilename(name string) domain.Format {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "jpg", "jpeg":
		return domain.FormatJPEG
	case "webp":
		return domain.FormatWebP
	default:
		return domain.FormatPNG
	}
}
