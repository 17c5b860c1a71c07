package generation

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"assetgen/internal/domain"
)

// sequence is the process-wide monotonically increasing filename counter.
// Combined with the timestamp it guarantees uniqueness across a run without
// relying on randomness.
var sequence atomic.Int64

// nextSequence returns the next filename sequence index.
func nextSequence() int64 {
	return sequence.Add(1)
}

// imageFilename derives a deterministic filename for one generated image.
func imageFilename(category string, seq int64, dims domain.Dimensions, ts time.Time) string {
	return fmt.Sprintf("%s_%04d_%dx%d_%s.png",
		slugify(category), seq, dims.Width, dims.Height, ts.UTC().Format("20060102T150405"))
}

// slugify lowercases and hyphenates a name for filesystem use.
func slugify(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "image"
	}
	var b strings.Builder
	lastHyphen := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "image"
	}
	return out
}
