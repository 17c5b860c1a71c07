package variants

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// maxDownloadBytes caps how much of a source image is accepted.
	maxDownloadBytes = 50 << 20
	// downloadTimeout bounds one source image fetch end to end.
	downloadTimeout = 30 * time.Second
)

// ErrImageTooLarge is returned when a source image exceeds the download cap.
var ErrImageTooLarge = errors.New("variants: source image exceeds 50 MiB limit")

// Fetcher retrieves source image bytes. It understands http(s) URLs and
// data: URLs, the latter produced by the synthetic provider fallback.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
}

// NewFetcher builds a fetcher with the standard size and time bounds.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:   client,
		maxBytes: maxDownloadBytes,
		timeout:  downloadTimeout,
	}
}

// Fetch downloads the image at url within the configured bounds.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return f.decodeDataURL(url)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("variants: build download request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("variants: download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("variants: download image: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("variants: read image body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

// decodeDataURL extracts the payload of a base64 data URL.
func (f *Fetcher) decodeDataURL(url string) ([]byte, error) {
	_, payload, ok := strings.Cut(url, ",")
	if !ok || !strings.Contains(url[:len(url)-len(payload)], ";base64") {
		return nil, fmt.Errorf("variants: unsupported data URL")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("variants: decode data URL: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
