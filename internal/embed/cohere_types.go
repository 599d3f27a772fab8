package embed

// CohereEmbedRequest is the payload for Cohere's /v2/embed endpoint.
type CohereEmbedRequest struct {
	Model          string   `json:"model"`
	Texts          []string `json:"texts"`
	InputType      string   `json:"input_type"`
	EmbeddingTypes []string `json:"embedding_types"`
}

// CohereEmbedResponse is the response from /v2/embed.
// Only float embeddings are requested, so other encoding fields are omitted.
type CohereEmbedResponse struct {
	ID         string           `json:"id"`
	Embeddings CohereEmbeddings `json:"embeddings"`
}

// CohereEmbeddings holds the embedding vectors keyed by encoding.
type CohereEmbeddings struct {
	Float [][]float32 `json:"float"`
}

// CohereAPIError is the error body Cohere returns on non-2xx responses.
type CohereAPIError struct {
	Message string `json:"message"`
}
