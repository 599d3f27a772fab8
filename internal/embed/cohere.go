package embed

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

// DefaultCohereModel is the embedding model used when none is configured.
const DefaultCohereModel = "embed-english-v3.0"

// Config controls the Cohere embedding client.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int

	// ProgressFunc, if set, receives (completed, total) after each batch.
	ProgressFunc func(completed, total int)
}

// CohereEmbedder generates embeddings using Cohere's /v2/embed API.
type CohereEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    Config

	mu     sync.RWMutex
	closed bool
	dims   int
}

// Verify interface implementation at compile time
var _ Embedder = (*CohereEmbedder)(nil)

// NewCohereEmbedder creates a Cohere embedding client.
func NewCohereEmbedder(cfg Config) (*CohereEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, clicrerrors.New(clicrerrors.ErrCodeAPIKeyMissing, "Cohere API key is not set").
			WithSuggestion("set COHERE_API_KEY in the environment or a .env file")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCohereBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultCohereModel
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	// IdleConnTimeout stays short because CLI runs are short-lived and
	// connections should be released quickly after Ctrl+C.
	transport := &http.Transport{
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     10 * time.Second,
	}

	// No http.Client.Timeout here: it would override the per-request
	// context timeouts applied in doEmbedWithRetry.
	client := &http.Client{
		Transport: transport,
	}

	return &CohereEmbedder{
		client:    client,
		transport: transport,
		config:    cfg,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *CohereEmbedder) Embed(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if strings.TrimSpace(text) == "" {
		return nil, clicrerrors.New(clicrerrors.ErrCodeQueryEmpty, "cannot embed empty text")
	}

	embeddings, err := e.doEmbedWithRetry(ctx, []string{text}, inputType)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, clicrerrors.New(clicrerrors.ErrCodeAPIResponse, "no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, splitting the input
// into API-sized batches. Empty texts map to zero vectors without an API call.
func (e *CohereEmbedder) EmbedBatch(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, fmt.Errorf("embedder is closed")
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type indexedText struct {
		idx  int
		text string
	}
	var nonEmpty []indexedText
	results := make([][]float32, len(texts))

	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.Dimensions())
		} else {
			nonEmpty = append(nonEmpty, indexedText{i, text})
		}
	}

	if len(nonEmpty) == 0 {
		return results, nil
	}

	for start := 0; start < len(nonEmpty); start += e.config.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := start + e.config.BatchSize
		if end > len(nonEmpty) {
			end = len(nonEmpty)
		}

		batch := nonEmpty[start:end]
		batchTexts := make([]string, len(batch))
		for i, it := range batch {
			batchTexts[i] = it.text
		}

		embeddings, err := e.doEmbedWithRetry(ctx, batchTexts, inputType)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch: %w", err)
		}

		for i, emb := range embeddings {
			results[batch[i].idx] = emb
		}

		if e.config.ProgressFunc != nil {
			e.config.ProgressFunc(end, len(nonEmpty))
		}
	}

	return results, nil
}

// retryConfig backs off 200ms, 400ms, ... between attempts. Timeouts
// count as retryable because a slow batch often succeeds on retry.
func (e *CohereEmbedder) retryConfig() clicrerrors.RetryConfig {
	cfg := clicrerrors.DefaultRetryConfig()
	cfg.MaxRetries = e.config.MaxRetries - 1
	cfg.InitialDelay = 200 * time.Millisecond
	cfg.MaxDelay = 2 * time.Second
	cfg.ShouldRetry = func(err error) bool {
		return clicrerrors.IsRetryable(err) || isTimeout(err)
	}
	return cfg
}

// doEmbedWithRetry performs embedding with exponential backoff on
// retryable API failures.
func (e *CohereEmbedder) doEmbedWithRetry(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	attempt := 0
	embeddings, err := clicrerrors.RetryWithResult(ctx, e.retryConfig(), func() ([][]float32, error) {
		attempt++
		timeoutCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()

		out, err := e.doEmbed(timeoutCtx, texts, inputType)
		if err != nil {
			slog.Debug("embedding_attempt_failed",
				slog.Int("attempt", attempt),
				slog.Int("texts_count", len(texts)),
				slog.String("error", err.Error()))
		}
		return out, err
	})
	if err == nil {
		return embeddings, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !clicrerrors.IsRetryable(err) && !isTimeout(err) {
		return nil, err
	}
	return nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeEmbeddingFailed,
		fmt.Sprintf("embedding failed after %d attempts", e.config.MaxRetries))
}

// doEmbed performs a single embed request with cancellation support.
// The HTTP call runs in a goroutine so a cancelled context can return
// immediately instead of waiting out the request.
func (e *CohereEmbedder) doEmbed(ctx context.Context, texts []string, inputType InputType) ([][]float32, error) {
	url := e.config.BaseURL + "/v2/embed"

	reqBody := CohereEmbedRequest{
		Model:          e.config.Model,
		Texts:          texts,
		InputType:      string(inputType),
		EmbeddingTypes: []string{"float"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	type result struct {
		embeddings [][]float32
		err        error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := e.client.Do(req)
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

		var apiResult CohereEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
			resultCh <- result{nil, clicrerrors.Wrap(err, clicrerrors.ErrCodeAPIResponse, "failed to decode embed response")}
			return
		}

		vectors := apiResult.Embeddings.Float
		if len(vectors) != len(texts) {
			resultCh <- result{nil, clicrerrors.New(clicrerrors.ErrCodeAPIResponse,
				fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)))}
			return
		}

		embeddings := make([][]float32, len(vectors))
		for i, vec := range vectors {
			embeddings[i] = normalizeVector(vec)
		}

		e.recordDimensions(embeddings)
		resultCh <- result{embeddings, nil}
	}()

	select {
	case <-ctx.Done():
		e.transport.CloseIdleConnections()
		select {
		case <-resultCh:
		case <-time.After(100 * time.Millisecond):
		}
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.embeddings, r.err
	}
}

// statusError maps an HTTP status to a coded error.
func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var apiErr CohereAPIError
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

func isTimeout(err error) bool {
	return err == context.DeadlineExceeded ||
		strings.Contains(err.Error(), "context deadline exceeded") ||
		strings.Contains(err.Error(), "Client.Timeout")
}

// recordDimensions captures the embedding dimension from the first response.
func (e *CohereEmbedder) recordDimensions(embeddings [][]float32) {
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return
	}
	e.mu.Lock()
	if e.dims == 0 {
		e.dims = len(embeddings[0])
	}
	e.mu.Unlock()
}

// Dimensions returns the embedding dimension. Before the first API call
// this is the documented dimension of the configured model.
func (e *CohereEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.dims == 0 {
		return DefaultDimensions
	}
	return e.dims
}

// ModelName returns the model identifier.
func (e *CohereEmbedder) ModelName() string {
	return e.config.Model
}

// SetProgressFunc sets the progress callback for batch embedding.
func (e *CohereEmbedder) SetProgressFunc(fn func(completed, total int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.ProgressFunc = fn
}

// Close releases resources.
func (e *CohereEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.transport != nil {
		e.transport.CloseIdleConnections()
	}
	return nil
}
