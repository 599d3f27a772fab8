package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clicrerrors "github.com/jagdteam/clicr/internal/errors"
)

func newChatServer(t *testing.T, reply string, requests *[]cohereChatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/chat", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req cohereChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if requests != nil {
			*requests = append(*requests, req)
		}

		resp := cohereChatResponse{
			ID: "test",
			Message: cohereChatMessage{
				Role:    RoleAssistant,
				Content: []cohereContentItem{{Type: "text", Text: reply}},
			},
			FinishReason: "COMPLETE",
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testConfig(url string) Config {
	return Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "command-r-plus-08-2024",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}
}

func TestNewCohereClient_RequiresAPIKey(t *testing.T) {
	_, err := NewCohereClient(Config{})
	require.Error(t, err)
	assert.Equal(t, clicrerrors.ErrCodeAPIKeyMissing, clicrerrors.GetCode(err))
}

func TestNewCohereClient_Defaults(t *testing.T) {
	c, err := NewCohereClient(Config{APIKey: "k"})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Equal(t, DefaultChatModel, c.ModelName())
	assert.Equal(t, DefaultTemperature, c.config.Temperature)
}

func TestChat_SendsMessagesAndDocuments(t *testing.T) {
	var requests []cohereChatRequest
	srv := newChatServer(t, "the answer", &requests)
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "how does auth work?"},
		},
		Documents: []Document{
			{ID: "chunk-1", Data: map[string]string{"text": "func Login()", "source": "auth.go"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Text)
	assert.Equal(t, "COMPLETE", resp.FinishReason)

	require.Len(t, requests, 1)
	req := requests[0]
	assert.Equal(t, "command-r-plus-08-2024", req.Model)
	assert.InDelta(t, DefaultTemperature, req.Temperature, 1e-9)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, RoleUser, req.Messages[0].Role)
	require.Len(t, req.Documents, 1)
	assert.Equal(t, "chunk-1", req.Documents[0].ID)
	assert.Equal(t, "auth.go", req.Documents[0].Data["source"])
}

func TestChat_MultiPartContentIsJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := cohereChatResponse{
			Message: cohereChatMessage{
				Content: []cohereContentItem{
					{Type: "text", Text: "part one "},
					{Type: "text", Text: "part two"},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", resp.Text)
}

func TestChat_NoMessages(t *testing.T) {
	c, err := NewCohereClient(Config{APIKey: "k"})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Chat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, clicrerrors.ErrCodeInvalidInput, clicrerrors.GetCode(err))
}

func TestChat_EmptyResponseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(cohereChatResponse{})
	}))
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.Error(t, err)
	assert.Equal(t, clicrerrors.ErrCodeAPIResponse, clicrerrors.GetCode(err))
}

func TestChat_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(cohereAPIError{Message: "rate limited"})
			return
		}
		resp := cohereChatResponse{
			Message: cohereChatMessage{Content: []cohereContentItem{{Type: "text", Text: "ok"}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChat_AuthErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	_, err = c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.Error(t, err)
	assert.Equal(t, clicrerrors.ErrCodeAPIAuth, clicrerrors.GetCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestChat_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = c.Chat(ctx, ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChat_AfterClose(t *testing.T) {
	c, err := NewCohereClient(Config{APIKey: "k"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	assert.Error(t, err)
}

func TestChat_CitationsExtracted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := cohereChatResponse{
			Message: cohereChatMessage{
				Content: []cohereContentItem{{Type: "text", Text: "grounded answer"}},
				Citations: []cohereCitation{
					{Sources: []cohereCitationSource{{Type: "document", Document: map[string]any{"id": "chunk-2"}}}},
					{Sources: []cohereCitationSource{{Type: "document", Document: map[string]any{"id": "chunk-1"}}}},
					{Sources: []cohereCitationSource{{Type: "document", Document: map[string]any{"id": "chunk-2"}}}},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := NewCohereClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	resp, err := c.Chat(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "q"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-2", "chunk-1"}, resp.CitedDocumentIDs)
}
