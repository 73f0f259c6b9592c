package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"shaggydog/internal/infra"
)

// Options controls how the vision/edit client is configured.
type Options struct {
	APIKey string
	// BaseURL points at an OpenAI-compatible API root, e.g.
	// https://api.openai.com/v1.
	BaseURL string
	// DetectModel answers classification requests; DetectFallbackModel is
	// tried when the primary call fails outright.
	DetectModel         string
	DetectFallbackModel string
	HTTPClient          *http.Client
	Logger              *infra.Logger
	// MaxRetries bounds per-call retry attempts with exponential backoff.
	// Zero preserves treat-every-failure-as-terminal behavior.
	MaxRetries uint64
}

// Client talks to the hosted vision and image-edit service. It exposes the
// two operations the pipeline needs: classify an image into free text, and
// apply a masked edit instruction to an image.
type Client struct {
	apiKey        string
	baseURL       string
	detectModel   string
	fallbackModel string
	httpClient    *http.Client
	logger        *infra.Logger
	maxRetries    uint64
}

// EditRequest describes one masked image edit.
type EditRequest struct {
	Model string
	// Image and Mask are square PNGs of the same dimensions; transparent
	// mask pixels are editable.
	Image  []byte
	Mask   []byte
	Prompt string
	// Size is the square edge length, e.g. 1024 renders "1024x1024".
	Size int
}

// APIError carries the service's error payload for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vision: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("vision: status %d", e.StatusCode)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type imageEditResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// detection instruction framing. The creative-filter wording avoids
// content-moderation refusals on headshot input.
const classifySystemPrompt = "You are a creative assistant for a fun entertainment app that applies " +
	"artistic dog-themed visual filters to photos, similar to Instagram filters or Snapchat lenses. " +
	"Your role is to help select which visual filter style would create the most appealing artistic " +
	"effect based on aesthetic compatibility, not to make comparisons. Analyze images and provide " +
	"filter style selections as requested."

// NewClient constructs a vision client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("vision: api key is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	detect := opts.DetectModel
	if detect == "" {
		detect = "gpt-4o-mini"
	}
	fallback := opts.DetectFallbackModel
	if fallback == "" {
		fallback = "gpt-4o"
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		detectModel:   detect,
		fallbackModel: fallback,
		httpClient:    httpClient,
		logger:        logger,
		maxRetries:    opts.MaxRetries,
	}, nil
}

// Classify submits an image with the filter-selection instruction and
// returns the raw text answer. The primary detect model is tried first and
// the fallback once on failure.
func (c *Client) Classify(ctx context.Context, png []byte, instruction string) (string, error) {
	answer, err := c.classifyWithModel(ctx, c.detectModel, png, instruction)
	if err == nil {
		return answer, nil
	}
	if c.fallbackModel == "" || c.fallbackModel == c.detectModel {
		return "", err
	}
	c.logger.Warn().Err(err).
		Str("model", c.detectModel).
		Str("fallback", c.fallbackModel).
		Msg("vision: classify failed, retrying with fallback model")
	return c.classifyWithModel(ctx, c.fallbackModel, png, instruction)
}

func (c *Client) classifyWithModel(ctx context.Context, model string, png []byte, instruction string) (string, error) {
	payload := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: []chatContentPart{
				{Type: "text", Text: instruction},
				{Type: "image_url", ImageURL: &chatImageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
				}},
			}},
		},
		MaxTokens:   100,
		Temperature: 0.3,
	}

	var response chatResponse
	err := c.withRetry(ctx, func() error {
		return c.postJSON(ctx, "/chat/completions", payload, &response)
	})
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("vision: classify returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// Edit applies a masked edit and returns the edited PNG bytes. The service
// answers with either an inline base64 payload or a URL to download.
func (c *Client) Edit(ctx context.Context, req EditRequest) ([]byte, error) {
	if len(req.Image) == 0 {
		return nil, fmt.Errorf("vision: edit image is required")
	}
	if req.Size <= 0 {
		req.Size = 1024
	}

	var response imageEditResponse
	err := c.withRetry(ctx, func() error {
		return c.postEdit(ctx, req, &response)
	})
	if err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("vision: edit returned no data")
	}
	item := response.Data[0]
	if item.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("vision: decode edit payload: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("vision: edit payload is empty")
		}
		return data, nil
	}
	if item.URL != "" {
		return c.download(ctx, item.URL)
	}
	return nil, fmt.Errorf("vision: edit response has neither b64_json nor url")
}

func (c *Client) postEdit(ctx context.Context, req EditRequest, out *imageEditResponse) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if req.Model != "" {
		if err := writer.WriteField("model", req.Model); err != nil {
			return fmt.Errorf("vision: write model field: %w", err)
		}
	}
	if err := writer.WriteField("prompt", req.Prompt); err != nil {
		return fmt.Errorf("vision: write prompt field: %w", err)
	}
	if err := writer.WriteField("n", "1"); err != nil {
		return fmt.Errorf("vision: write n field: %w", err)
	}
	if err := writer.WriteField("size", fmt.Sprintf("%dx%d", req.Size, req.Size)); err != nil {
		return fmt.Errorf("vision: write size field: %w", err)
	}
	imagePart, err := writer.CreateFormFile("image", "image.png")
	if err != nil {
		return fmt.Errorf("vision: create image part: %w", err)
	}
	if _, err := imagePart.Write(req.Image); err != nil {
		return fmt.Errorf("vision: write image part: %w", err)
	}
	if len(req.Mask) > 0 {
		maskPart, err := writer.CreateFormFile("mask", "mask.png")
		if err != nil {
			return fmt.Errorf("vision: create mask part: %w", err)
		}
		if _, err := maskPart.Write(req.Mask); err != nil {
			return fmt.Errorf("vision: write mask part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("vision: finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &body)
	if err != nil {
		return fmt.Errorf("vision: create edit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(httpReq, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vision: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vision: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vision: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed apiErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
			apiErr.Message = parsed.Error.Message
		} else if len(data) > 0 {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vision: decode response: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vision: create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: download edited image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "download failed"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision: read edited image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("vision: downloaded image is empty")
	}
	return data, nil
}

// withRetry runs op with bounded exponential backoff when MaxRetries is
// nonzero. Client errors other than rate limits are never retried.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	if c.maxRetries == 0 {
		return op()
	}
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError && apiErr.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.Retry(wrapped, policy)
}
