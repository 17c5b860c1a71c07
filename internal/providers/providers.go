// Package providers carries the pieces shared by the concrete provider
// clients: rate-limit error classification and deterministic synthetic asset
// rendering used when a client has no credentials configured.
package providers

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

// RateLimitError marks a provider failure as retryable. Adapters back off and
// retry on it; every other error is surfaced immediately.
type RateLimitError struct {
	Provider string
	Message  string
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rate limited", e.Provider)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Message)
}

// IsRateLimited reports whether err carries a rate-limit signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// DeterministicSeed derives a stable hex seed from arbitrary values.
func DeterministicSeed(parts ...any) string {
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		joined = append(joined, fmt.Sprint(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(joined, "|")))
	return hex.EncodeToString(sum[:6])
}

// PlaceholderPNG renders a deterministic striped placeholder so the pipeline
// stays fully operational in environments without provider credentials.
func PlaceholderPNG(width, height int, seed string) []byte {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripe := height / 12
	if stripe < 32 {
		stripe = 32
	}
	for y := 0; y < height; y += stripe * 2 {
		end := y + stripe
		if end > height {
			end = height
		}
		draw.Draw(img, image.Rect(0, y, width, end), &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// PlaceholderDataURL wraps placeholder bytes in a data URL so downstream
// variant processing can fetch synthetic assets through the same path as
// remote ones.
func PlaceholderDataURL(data []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = (seed + "31a7c2")[:6]
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{
		R: hexByte(segment[0:2]),
		G: hexByte(segment[2:4]),
		B: hexByte(segment[4:6]),
		A: 255,
	}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0x42
	}
	return uint8(v)
}
