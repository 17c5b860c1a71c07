package replicate

import (
	"bytes"
	"context"
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
var ErrMissingPrompt = errors.New("replicate: prompt is required")

// Options configures the prediction client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	// PollInterval is the initial delay between status polls. It grows by
	// half on each poll up to PollCeiling.
	PollInterval time.Duration
	PollCeiling  time.Duration
}

// Client talks to a Replicate-style hosted-model prediction API: a create
// call followed by status polling until the prediction settles. The polling
// loop lives entirely inside GenerateImages so callers see one blocking call.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
	pollCeiling  time.Duration
}

// PredictionRequest captures the inputs for one prediction.
type PredictionRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	NumOutputs     int
	Seed           *int64
	// SourceImageURL enables image-to-image generation when set.
	SourceImageURL string
	ExtraInput     map[string]any
}

// ImageAsset is one normalized output of a settled prediction.
type ImageAsset struct {
	URL    string
	Data   []byte
	Format string
	Width  int
	Height int
}

type createRequest struct {
	Model string         `json:"model"`
	Input map[string]any `json:"input"`
}

type prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error,omitempty"`
	Detail string   `json:"detail,omitempty"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.replicate.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "flux-schnell"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	pollCeiling := opts.PollCeiling
	if pollCeiling <= 0 {
		pollCeiling = 5 * time.Second
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.NopLogger()
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: pollInterval,
		pollCeiling:  pollCeiling,
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

// GenerateImages runs one prediction to completion and returns its outputs.
// Without credentials it renders deterministic synthetic assets instead.
func (c *Client) GenerateImages(ctx context.Context, req PredictionRequest) ([]ImageAsset, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrMissingPrompt
	}
	if req.NumOutputs <= 0 {
		req.NumOutputs = 1
	}
	if !c.HasCredentials() {
		return c.syntheticAssets(req), nil
	}

	created, err := c.createPrediction(ctx, req)
	if err != nil {
		return nil, err
	}
	settled, err := c.waitForPrediction(ctx, created)
	if err != nil {
		return nil, err
	}

	assets := make([]ImageAsset, 0, len(settled.Output))
	for _, outputURL := range settled.Output {
		outputURL = strings.TrimSpace(outputURL)
		if outputURL == "" {
			continue
		}
		assets = append(assets, ImageAsset{
			URL:    outputURL,
			Format: "image/png",
			Width:  req.Width,
			Height: req.Height,
		})
	}
	if len(assets) == 0 {
		return nil, errors.New("replicate: prediction settled with no outputs")
	}
	c.logger.Debug().
		Str("prediction_id", settled.ID).
		Int("outputs", len(assets)).
		Msg("replicate: prediction settled")
	return assets, nil
}

func (c *Client) createPrediction(ctx context.Context, req PredictionRequest) (*prediction, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	input := map[string]any{
		"prompt":      strings.TrimSpace(req.Prompt),
		"num_outputs": req.NumOutputs,
	}
	if req.NegativePrompt != "" {
		input["negative_prompt"] = req.NegativePrompt
	}
	if req.Width > 0 && req.Height > 0 {
		input["width"] = req.Width
		input["height"] = req.Height
	}
	if req.Seed != nil {
		input["seed"] = *req.Seed
	}
	if req.SourceImageURL != "" {
		input["image"] = req.SourceImageURL
	}
	for k, v := range req.ExtraInput {
		input[k] = v
	}

	body, err := json.Marshal(createRequest{Model: model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()
	return decodePrediction(resp)
}

func (c *Client) getPrediction(ctx context.Context, id string) (*prediction, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("replicate: build poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("replicate: poll request: %w", err)
	}
	defer resp.Body.Close()
	return decodePrediction(resp)
}

// waitForPrediction polls until the prediction settles, growing the poll
// interval by half each round up to the ceiling.
func (c *Client) waitForPrediction(ctx context.Context, p *prediction) (*prediction, error) {
	interval := c.pollInterval
	for {
		switch p.Status {
		case "succeeded":
			return p, nil
		case "failed", "canceled":
			msg := strings.TrimSpace(p.Error)
			if msg == "" {
				msg = "prediction " + p.Status
			}
			if strings.Contains(strings.ToLower(msg), "rate limit") {
				return nil, &providers.RateLimitError{Provider: "replicate", Message: msg}
			}
			return nil, fmt.Errorf("replicate: %s", msg)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval += interval / 2
		if interval > c.pollCeiling {
			interval = c.pollCeiling
		}

		next, err := c.getPrediction(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p = next
	}
}

func (c *Client) syntheticAssets(req PredictionRequest) []ImageAsset {
	assets := make([]ImageAsset, req.NumOutputs)
	// Seed by value, not by pointer, so equal seeds reproduce equal assets.
	seedKey := "unseeded"
	if req.Seed != nil {
		seedKey = strconv.FormatInt(*req.Seed, 10)
	}
	for i := range assets {
		seed := providers.DeterministicSeed("replicate", req.Model, req.Prompt, seedKey, i)
		data := providers.PlaceholderPNG(req.Width, req.Height, seed)
		width, height := req.Width, req.Height
		if width <= 0 {
			width = 1024
		}
		if height <= 0 {
			height = 1024
		}
		assets[i] = ImageAsset{
			URL:    providers.PlaceholderDataURL(data),
			Data:   data,
			Format: "image/png",
			Width:  width,
			Height: height,
		}
	}
	c.logger.Debug().Int("outputs", len(assets)).Msg("replicate: credentials missing, produced synthetic assets")
	return assets
}

func decodePrediction(resp *http.Response) (*prediction, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate: read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &providers.RateLimitError{Provider: "replicate", Message: detailMessage(raw)}
	}
	if resp.StatusCode >= 300 {
		if msg := detailMessage(raw); msg != "" {
			return nil, fmt.Errorf("replicate: %s", msg)
		}
		return nil, fmt.Errorf("replicate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var p prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &p, nil
}

func detailMessage(raw []byte) string {
	var p prediction
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	if p.Detail != "" {
		return strings.TrimSpace(p.Detail)
	}
	return strings.TrimSpace(p.Error)
}
