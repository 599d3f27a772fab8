package llm

// cohereChatRequest is the payload for Cohere's /v2/chat endpoint.
type cohereChatRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Documents   []cohereDocument `json:"documents,omitempty"`
	Temperature float64          `json:"temperature"`
}

// cohereDocument mirrors the v2 document shape.
type cohereDocument struct {
	ID   string            `json:"id"`
	Data map[string]string `json:"data"`
}

// cohereChatResponse is the response from /v2/chat.
type cohereChatResponse struct {
	ID           string            `json:"id"`
	Message      cohereChatMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type cohereChatMessage struct {
	Role      string              `json:"role"`
	Content   []cohereContentItem `json:"content"`
	Citations []cohereCitation    `json:"citations,omitempty"`
}

type cohereCitation struct {
	Start   int                    `json:"start"`
	End     int                    `json:"end"`
	Text    string                 `json:"text"`
	Sources []cohereCitationSource `json:"sources,omitempty"`
}

type cohereCitationSource struct {
	Type     string         `json:"type"`
	ID       string         `json:"id"`
	Document map[string]any `json:"document,omitempty"`
}

type cohereContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// cohereAPIError is the error body returned on non-2xx responses.
type cohereAPIError struct {
	Message string `json:"message"`
}
