package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"assetgen/internal/providers"
)

func TestGenerateImagePayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client, err := NewClient(Options{
		APIKey:     "test",
		Model:      "dall-e-3",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	transport.setJSONResponse("/v1/images/generations", map[string]any{
		"created": 1700000000,
		"data": []any{
			map[string]any{
				"url":            "https://example.com/generated/out.png",
				"revised_prompt": "a refined prompt",
			},
		},
	})

	asset, err := client.GenerateImage(context.Background(), ImageRequest{
		Prompt:  "storefront at golden hour",
		Size:    "1792x1024",
		Quality: "hd",
		Style:   "vivid",
	})
	if err != nil {
		t.Fatalf("generate image: %v", err)
	}
	if asset.URL != "https://example.com/generated/out.png" {
		t.Fatalf("url = %q", asset.URL)
	}
	if asset.Width != 1792 || asset.Height != 1024 {
		t.Fatalf("dimensions = %dx%d, want 1792x1024", asset.Width, asset.Height)
	}
	if asset.RevisedPrompt != "a refined prompt" {
		t.Fatalf("revised prompt = %q", asset.RevisedPrompt)
	}

	var sent map[string]any
	if err := json.Unmarshal(transport.lastBody, &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["model"] != "dall-e-3" {
		t.Fatalf("model = %v", sent["model"])
	}
	if sent["quality"] != "hd" || sent["style"] != "vivid" {
		t.Fatalf("quality/style = %v/%v", sent["quality"], sent["style"])
	}
	if sent["n"] != float64(1) {
		t.Fatalf("n = %v, want 1", sent["n"])
	}
}

func TestGenerateImageRateLimited(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setStatusResponse("/v1/images/generations", http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"message": "Rate limit reached for images", "code": "rate_limit_exceeded"},
	})
	client, err := NewClient(Options{APIKey: "test", HTTPClient: &http.Client{Transport: transport}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GenerateImage(context.Background(), ImageRequest{Prompt: "x", Size: "1024x1024"})
	if !providers.IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestGenerateImageErrorEnvelope(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setStatusResponse("/v1/images/generations", http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "Your request was rejected by the safety system", "code": "content_policy_violation"},
	})
	client, err := NewClient(Options{APIKey: "test", HTTPClient: &http.Client{Transport: transport}})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GenerateImage(context.Background(), ImageRequest{Prompt: "x", Size: "1024x1024"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if providers.IsRateLimited(err) {
		t.Fatalf("content policy error must not be retryable")
	}
	if !strings.Contains(err.Error(), "safety system") {
		t.Fatalf("error = %v, want provider message", err)
	}
}

func TestGenerateImageSyntheticWithoutCredentials(t *testing.T) {
	client, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	req := ImageRequest{Prompt: "bakery interior", Size: "1024x1024"}
	first, err := client.GenerateImage(context.Background(), req)
	if err != nil {
		t.Fatalf("generate synthetic: %v", err)
	}
	if !strings.HasPrefix(first.URL, "data:image/png;base64,") {
		t.Fatalf("synthetic url = %q, want data url", first.URL)
	}
	if len(first.Data) == 0 {
		t.Fatalf("synthetic asset missing bytes")
	}
	second, err := client.GenerateImage(context.Background(), req)
	if err != nil {
		t.Fatalf("generate synthetic again: %v", err)
	}
	if first.URL != second.URL {
		t.Fatalf("synthetic assets should be deterministic for identical input")
	}
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in     string
		width  int
		height int
	}{
		{"1024x1024", 1024, 1024},
		{"1792x1024", 1792, 1024},
		{"garbage", 1024, 1024},
		{"", 1024, 1024},
	}
	for _, tc := range cases {
		w, h := parseSize(tc.in)
		if w != tc.width || h != tc.height {
			t.Fatalf("parseSize(%q) = %dx%d, want %dx%d", tc.in, w, h, tc.width, tc.height)
		}
	}
}

type captureTransport struct {
	responses map[string]responseStub
	lastBody  []byte
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	c.setStatusResponse(path, http.StatusOK, payload)
}

func (c *captureTransport) setStatusResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	return &http.Response{
		StatusCode: s.status,
		Header:     s.header,
		Body:       io.NopCloser(strings.NewReader(string(s.body))),
	}
}
