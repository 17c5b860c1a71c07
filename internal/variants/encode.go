package variants

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"assetgen/internal/domain"
)

// effectiveQuality resolves the encode quality from the requested value and
// the optimization level. Aggressive trades visible quality for size; none
// keeps the encoder near lossless.
func effectiveQuality(requested int, level domain.OptimizationLevel) int {
	quality := requested
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	switch level {
	case domain.OptimizationNone:
		if requested <= 0 {
			quality = 95
		}
	case domain.OptimizationAggressive:
		quality -= 15
		if quality < 40 {
			quality = 40
		}
	}
	return quality
}

// encodeImage serializes img in the requested format with parameters
// derived from the optimization level.
func encodeImage(img image.Image, format domain.Format, quality int, level domain.OptimizationLevel) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case domain.FormatJPEG:
		if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: effectiveQuality(quality, level)}); err != nil {
			return nil, fmt.Errorf("variants: encode jpeg: %w", err)
		}
	case domain.FormatPNG:
		enc := png.Encoder{CompressionLevel: pngCompression(level)}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("variants: encode png: %w", err)
		}
	case domain.FormatWebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(effectiveQuality(quality, level)))
		if err != nil {
			return nil, fmt.Errorf("variants: webp encoder options: %w", err)
		}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, fmt.Errorf("variants: encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("variants: unsupported format %q", format)
	}
	return buf.Bytes(), nil
}

func pngCompression(level domain.OptimizationLevel) png.CompressionLevel {
	if level == domain.OptimizationAggressive {
		return png.BestCompression
	}
	return png.DefaultCompression
}

// flatten composites transparency onto white for formats without an alpha
// channel.
func flatten(img image.Image) image.Image {
	flat := image.NewRGBA(img.Bounds())
	draw.Draw(flat, flat.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, img.Bounds().Min, draw.Over)
	return flat
}
