package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"assetgen/internal/infra"
	"assetgen/internal/providers"
)

// ErrMissingPrompt indicates a request without a usable prompt.
var ErrMissingPrompt = errors.New("openai: prompt is required")

// Options configures the OpenAI image client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the OpenAI image generation API. The API
// produces at most one image per call for the dall-e-3 family, so callers
// issue one call per unit of quantity.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest captures the inputs for one generation call.
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string // "1024x1024", "1792x1024", "1024x1792"
	Quality string // "standard" or "hd"
	Style   string // "vivid" or "natural"
}

// ImageAsset is the normalized result of one call.
type ImageAsset struct {
	URL           string
	Data          []byte
	Format        string
	Width         int
	Height        int
	RevisedPrompt string
}

type generationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type generationResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL           string `json:"url,omitempty"`
		B64JSON       string `json:"b64_json,omitempty"`
		RevisedPrompt string `json:"revised_prompt,omitempty"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "dall-e-3"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.NopLogger()
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Model returns the configured default model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage invokes the images endpoint once and returns a single asset.
// Without credentials it renders a deterministic synthetic asset instead, so
// the pipeline remains exercisable in development.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrMissingPrompt
	}
	if !c.HasCredentials() {
		return c.syntheticAsset(req), nil
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	payload := generationRequest{
		Model:   model,
		Prompt:  prompt,
		N:       1,
		Size:    req.Size,
		Quality: req.Quality,
		Style:   req.Style,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &providers.RateLimitError{Provider: "openai", Message: errorMessage(raw)}
	}
	if resp.StatusCode >= 300 {
		if msg := errorMessage(raw); msg != "" {
			if strings.Contains(strings.ToLower(msg), "rate limit") {
				return nil, &providers.RateLimitError{Provider: "openai", Message: msg}
			}
			return nil, fmt.Errorf("openai: %s", msg)
		}
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded generationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, errors.New("openai: empty response data")
	}

	width, height := parseSize(req.Size)
	first := decoded.Data[0]
	asset := &ImageAsset{
		URL:           first.URL,
		Format:        "image/png",
		Width:         width,
		Height:        height,
		RevisedPrompt: first.RevisedPrompt,
	}
	if first.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(first.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai: decode inline image: %w", err)
		}
		asset.Data = data
		if asset.URL == "" {
			asset.URL = providers.PlaceholderDataURL(data)
		}
	}
	c.logger.Debug().
		Str("model", model).
		Str("size", req.Size).
		Str("quality", req.Quality).
		Msg("openai: generated image asset")
	return asset, nil
}

func (c *Client) syntheticAsset(req ImageRequest) *ImageAsset {
	width, height := parseSize(req.Size)
	seed := providers.DeterministicSeed("openai", req.Model, req.Prompt, req.Size, req.Quality)
	data := providers.PlaceholderPNG(width, height, seed)
	c.logger.Debug().Str("size", req.Size).Msg("openai: credentials missing, produced synthetic asset")
	return &ImageAsset{
		URL:    providers.PlaceholderDataURL(data),
		Data:   data,
		Format: "image/png",
		Width:  width,
		Height: height,
	}
}

func errorMessage(raw []byte) string {
	var detail errorResponse
	if err := json.Unmarshal(raw, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail.Error.Message)
}

func parseSize(size string) (int, int) {
	parts := strings.SplitN(strings.TrimSpace(size), "x", 2)
	if len(parts) != 2 {
		return 1024, 1024
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil || width <= 0 {
		return 1024, 1024
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil || height <= 0 {
		return 1024, 1024
	}
	return width, height
}
