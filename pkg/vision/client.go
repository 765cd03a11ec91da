package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/markbang/cyop/pkg/config"
)

const defaultTimeout = 60 * time.Second

// Confidence is a coarse business-visible heuristic, not a probability:
// a clean stop scores 90, any degraded completion 70.
const (
	confidenceClean    = 90
	confidenceDegraded = 70
)

// Client calls an external multimodal chat-completion API to caption one
// image at a time.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// CaptionRequest carries one (image, prompt) pair plus sampling parameters.
// Model, MaxTokens and Temperature are passthrough values.
type CaptionRequest struct {
	ImageURL     string
	SystemPrompt string
	UserPrompt   string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// CaptionResult is the normalized provider response.
type CaptionResult struct {
	Caption    string
	Model      string
	TokensUsed int
	Confidence int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens int `json:"max_tokens,omitempty"`
	// Temperature 0 is a valid deterministic setting, so it is always sent.
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *imageURLBlock `json:"image_url,omitempty"`
}

type imageURLBlock struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewClient builds a caption client from the vision configuration. A missing
// API key is tolerated here; GenerateCaption reports it without a network
// call so the worker can surface a per-job configuration error.
func NewClient(cfg config.VisionConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateCaption sends a two-message request (system + user-with-image) and
// normalizes the completion into a caption result.
func (c *Client) GenerateCaption(ctx context.Context, req CaptionRequest) (*CaptionResult, error) {
	if c.apiKey == "" {
		return nil, errors.New("vision api key is not configured")
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, errors.New("image url is required")
	}

	payload := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: req.UserPrompt},
				{Type: "image_url", ImageURL: &imageURLBlock{URL: req.ImageURL}},
			}},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encoding caption request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("building caption request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("caption request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vision api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding caption response: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("vision api returned no choices")
	}

	choice := out.Choices[0]
	caption := strings.TrimSpace(choice.Message.Content)
	if caption == "" {
		return nil, errors.New("vision api returned empty content")
	}

	confidence := confidenceDegraded
	if choice.FinishReason == "stop" {
		confidence = confidenceClean
	}

	model := out.Model
	if model == "" {
		model = req.Model
	}

	return &CaptionResult{
		Caption:    caption,
		Model:      model,
		TokensUsed: out.Usage.TotalTokens,
		Confidence: confidence,
	}, nil
}
