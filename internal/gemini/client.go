// Package gemini is a minimal client for the Google Generative Language
// REST API: generateContent plus model discovery. Only the pieces the bot
// needs are modeled; everything else in the API surface is ignored.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "v1beta"

	// DefaultTimeout bounds a single generateContent call. A hung backend
	// call surfaces as a timeout error, never blocks the caller forever.
	DefaultTimeout = 90 * time.Second
)

// Client issues requests against one Generative Language endpoint. The API
// key travels per request, so a single Client serves the whole credential
// pool.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used by tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// NewClient creates a Client with the default endpoint and timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpc:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Blob is inline binary data (an image) attached to a request part.
type Blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

// Part is one piece of a content turn: text or inline data.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Content is a role-tagged turn ("user" or "model").
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerationConfig mirrors the API's generationConfig object.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            int      `json:"topK,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// Float returns a pointer for optional float fields in GenerationConfig.
func Float(v float64) *float64 { return &v }

// Request is one generateContent call.
type Request struct {
	Model  string
	APIKey string

	System   string
	Contents []Content
	Config   *GenerationConfig
}

// Reply is the usable portion of a generateContent response. Text may be
// empty on a successful call (the backend returned no candidates or only
// empty parts) — the caller decides what an empty answer means.
type Reply struct {
	Text         string
	FinishReason string
	PromptTokens int
	OutputTokens int
}

type wireRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

type wireError struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent issues one generateContent call and returns the reply.
// Non-2xx responses come back as errors carrying the HTTP status and the
// backend's error payload, so callers can classify them.
func (c *Client) GenerateContent(ctx context.Context, req Request) (*Reply, error) {
	wire := wireRequest{
		Contents:         req.Contents,
		GenerationConfig: req.Config,
	}
	if req.System != "" {
		wire.SystemInstruction = &Content{Parts: []Part{{Text: req.System}}}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.baseURL, apiVersion, url.PathEscape(req.Model), url.QueryEscape(req.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", req.Model, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: read response: %w", req.Model, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(req.Model, resp.StatusCode, respBody)
	}

	var wireResp wireResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, fmt.Errorf("gemini %s: unmarshal response: %w", req.Model, err)
	}

	reply := &Reply{}
	if len(wireResp.Candidates) > 0 {
		cand := wireResp.Candidates[0]
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		reply.Text = text.String()
		reply.FinishReason = cand.FinishReason
	}
	if wireResp.UsageMetadata != nil {
		reply.PromptTokens = wireResp.UsageMetadata.PromptTokenCount
		reply.OutputTokens = wireResp.UsageMetadata.CandidatesTokenCount
	}
	return reply, nil
}

// Probe issues the cheapest possible generateContent call against a
// (model, key) pair. It succeeds only when the backend produced a non-empty
// answer; an empty answer is an error so the pair is treated as unusable,
// but the error does not read as a quota failure.
func (c *Client) Probe(ctx context.Context, apiKey, model string) error {
	reply, err := c.GenerateContent(ctx, Request{
		Model:  model,
		APIKey: apiKey,
		System: "Ты помощник. Ответь 'ok'.",
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: "ping"}}},
		},
		Config: &GenerationConfig{MaxOutputTokens: 16},
	})
	if err != nil {
		return err
	}
	if reply.Text == "" {
		return fmt.Errorf("gemini %s: empty probe response", model)
	}
	return nil
}

// apiError turns a non-2xx response into an error string that keeps the
// HTTP status code and the backend message, which is what the failure
// classifier keys on.
func apiError(model string, status int, body []byte) error {
	var werr wireError
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &werr); err == nil && werr.Error.Message != "" {
		message = werr.Error.Message
		if werr.Error.Status != "" {
			message = werr.Error.Status + ": " + message
		}
	}
	return fmt.Errorf("gemini %s: HTTP %d: %s", model, status, message)
}
