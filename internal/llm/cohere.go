package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	clicrerrors "github.com/jagdteam/clicr/internal/errors"
)

// DefaultCohereBaseURL is the production API endpoint.
const DefaultCohereBaseURL = "https://api.cohere.com"

// Config controls the Cohere chat client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// CohereClient answers grounded questions via Cohere's /v2/chat API.
type CohereClient struct {
	client    *http.Client
	transport *http.Transport
	config    Config

	mu     sync.RWMutex
	closed bool
}

var _ Client = (*CohereClient)(nil)

// NewCohereClient creates a Cohere chat client.
func NewCohereClient(cfg Config) (*CohereClient, error) {
	if cfg.APIKey == "" {
		return nil, clicrerrors.New(clicrerrors.ErrCodeAPIKeyMissing, "Cohere API key is not set").
			WithSuggestion("set COHERE_API_KEY in the environment or a .env file")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCohereBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}

	// Per-request context timeouts are applied in chatWithRetry, so the
	// client itself carries none.
	client := &http.Client{
		Transport: transport,
	}

	return &CohereClient{
		client:    client,
		transport: transport,
		config:    cfg,
	}, nil
}

// Chat sends the conversation and grounding documents and returns the reply.
func (c *CohereClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, fmt.Errorf("chat client is closed")
	}
	c.mu.RUnlock()

	if len(req.Messages) == 0 {
		return nil, clicrerrors.New(clicrerrors.ErrCodeInvalidInput, "chat request has no messages")
	}

	return c.chatWithRetry(ctx, req)
}

// retryConfig backs off 200ms, 400ms, ... between attempts and only
// retries errors marked retryable (rate limits, 5xx, network).
func (c *CohereClient) retryConfig() clicrerrors.RetryConfig {
	cfg := clicrerrors.DefaultRetryConfig()
	cfg.MaxRetries = c.config.MaxRetries - 1
	cfg.InitialDelay = 200 * time.Millisecond
	cfg.MaxDelay = 2 * time.Second
	cfg.ShouldRetry = clicrerrors.IsRetryable
	return cfg
}

func (c *CohereClient) chatWithRetry(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	attempt := 0
	resp, err := clicrerrors.RetryWithResult(ctx, c.retryConfig(), func() (*ChatResponse, error) {
		attempt++
		timeoutCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()

		out, err := c.doChat(timeoutCtx, req)
		if err != nil {
			slog.Debug("chat_attempt_failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
		return out, err
	})
	if err == nil {
		return resp, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !clicrerrors.IsRetryable(err) {
		return nil, err
	}
	return nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeChatFailed,
		fmt.Sprintf("chat failed after %d attempts", c.config.MaxRetries))
}

// doChat performs a single chat request with cancellation support.
func (c *CohereClient) doChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	url := c.config.BaseURL + "/v2/chat"

	docs := make([]cohereDocument, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = cohereDocument{ID: d.ID, Data: d.Data}
	}

	reqBody := cohereChatRequest{
		Model:       c.config.Model,
		Messages:    req.Messages,
		Documents:   docs,
		Temperature: c.config.Temperature,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	type result struct {
		resp *ChatResponse
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := c.client.Do(httpReq)
		if err != nil {
			resultCh <- result{nil, err}
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resultCh <- result{nil, statusError(resp.StatusCode, respBody)}
			return
		}

		var apiResult cohereChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
			resultCh <- result{nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeAPIResponse, "failed to decode chat response")}
			return
		}

		var sb strings.Builder
		for _, item := range apiResult.Message.Content {
			if item.Type == "text" {
				sb.WriteString(item.Text)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			resultCh <- result{nil, clicrerrors.New(clicrerrors.ErrCodeAPIResponse, "chat response contained no text")}
			return
		}

		resultCh <- result{&ChatResponse{
			Text:             text,
			FinishReason:     apiResult.FinishReason,
			CitedDocumentIDs: citedDocumentIDs(apiResult.Message.Citations),
		}, nil}
	}()

	select {
	case <-ctx.Done():
		c.transport.CloseIdleConnections()
		select {
		case <-resultCh:
		case <-time.After(100 * time.Millisecond):
		}
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.resp, r.err
	}
}

// citedDocumentIDs extracts document IDs from citations in order,
// dropping duplicates.
func citedDocumentIDs(citations []cohereCitation) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, c := range citations {
		for _, src := range c.Sources {
			id := src.ID
			if docID, ok := src.Document["id"].(string); ok && docID != "" {
				id = docID
			}
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// statusError maps an HTTP status to a coded error.
func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var apiErr cohereAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		message = apiErr.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return clicrerrors.New(clicrerrors.ErrCodeAPIAuth, message).
			WithSuggestion("check that COHERE_API_KEY is valid")
	case status == http.StatusTooManyRequests:
		return clicrerrors.New(clicrerrors.ErrCodeAPIRateLimited, message)
	case status >= 500:
		return clicrerrors.New(clicrerrors.ErrCodeAPIUnavailable,
			fmt.Sprintf("Cohere API returned status %d: %s", status, message))
	default:
		return clicrerrors.New(clicrerrors.ErrCodeAPIResponse,
			fmt.Sprintf("Cohere API returned status %d: %s", status, message))
	}
}

// ModelName returns the model identifier.
func (c *CohereClient) ModelName() string {
	return c.config.Model
}

// Close releases resources.
func (c *CohereClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}
