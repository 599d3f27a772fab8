// Package chat wires retrieval and generation into one question-answer
// turn: embed the query, fetch the nearest chunks, and ask the chat
// model with those chunks as grounding documents.
package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jagdteam/clicr/internal/embed"
	clicrerrors "github.com/jagdteam/clicr/internal/errors"
	"github.com/jagdteam/clicr/internal/llm"
	"github.com/jagdteam/clicr/internal/store"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5

	// DefaultHistoryWindow is the number of prior turn pairs included.
	DefaultHistoryWindow = 5

	systemPreamble = "You are clicr, an assistant that answers questions about a codebase. " +
		"Ground every answer in the provided code chunks and say so when the " +
		"retrieved context does not cover the question. Reference files by path."
)

// Answer is the result of one question.
type Answer struct {
	Text string

	// Sources lists the contributing file paths, cited paths first,
	// then remaining retrieval order, deduplicated.
	Sources []string
}

// Turn is a completed question-answer pair carried as conversation history.
type Turn struct {
	Question string
	Answer   string
}

// Retriever finds the chunks most similar to a query vector.
type Retriever interface {
	Search(ctx context.Context, query []float32, k int) ([]store.SearchResult, error)
}

// Orchestrator answers questions over the index.
type Orchestrator struct {
	embedder      embed.Embedder
	retriever     Retriever
	client        llm.Client
	topK          int
	historyWindow int
}

// Options configures an Orchestrator.
type Options struct {
	Embedder  embed.Embedder
	Retriever Retriever
	Client    llm.Client

	// TopK is the number of chunks to retrieve. Defaults to DefaultTopK.
	TopK int

	// HistoryWindow is the number of prior turn pairs to include.
	// Defaults to DefaultHistoryWindow.
	HistoryWindow int

	// NoHistory answers every question in isolation: turns passed to
	// Ask are ignored instead of being sent as conversation context.
	NoHistory bool
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if opts.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.NoHistory {
		opts.HistoryWindow = 0
	}

	return &Orchestrator{
		embedder:      opts.Embedder,
		retriever:     opts.Retriever,
		client:        opts.Client,
		topK:          opts.TopK,
		historyWindow: opts.HistoryWindow,
	}, nil
}

// Ask answers a question. history holds prior turns of the session,
// oldest first; pass nil to ask without conversation context.
func (o *Orchestrator) Ask(ctx context.Context, question string, history []Turn) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, clicrerrors.New(clicrerrors.ErrCodeQueryEmpty, "question cannot be empty")
	}

	queryVec, err := o.embedder.Embed(ctx, question, embed.InputTypeQuery)
	if err != nil {
		return nil, err
	}

	results, err := o.retriever.Search(ctx, queryVec, o.topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, clicrerrors.New(clicrerrors.ErrCodeInvalidInput, "the index has no chunks to search").
			WithSuggestion("run 'clicr ingest' first")
	}

	documents := buildDocuments(results)
	messages := o.buildMessages(question, history)

	resp, err := o.client.Chat(ctx, llm.ChatRequest{
		Messages:  messages,
		Documents: documents,
	})
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    resp.Text,
		Sources: rankSources(results, resp.CitedDocumentIDs),
	}, nil
}

// buildDocuments converts retrieved chunks into grounding documents.
func buildDocuments(results []store.SearchResult) []llm.Document {
	documents := make([]llm.Document, len(results))
	for i, r := range results {
		c := r.Chunk
		documents[i] = llm.Document{
			ID: c.ID,
			Data: map[string]string{
				"title":  fmt.Sprintf("%s (lines %d-%d)", filepath.Base(c.FilePath), c.StartLine, c.EndLine),
				"text":   c.Content,
				"source": c.FilePath,
			},
		}
	}
	return documents
}

// buildMessages assembles the prompt: system preamble, the trailing
// history window, then the current question.
func (o *Orchestrator) buildMessages(question string, history []Turn) []llm.Message {
	if o.historyWindow <= 0 {
		history = nil
	} else if len(history) > o.historyWindow {
		history = history[len(history)-o.historyWindow:]
	}

	messages := make([]llm.Message, 0, 2+2*len(history))
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPreamble})
	for _, turn := range history {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: turn.Question},
			llm.Message{Role: llm.RoleAssistant, Content: turn.Answer})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: question})
}

// rankSources returns deduplicated file paths, cited chunks first in
// citation order, then the remaining retrieval order.
func rankSources(results []store.SearchResult, citedIDs []string) []string {
	pathByID := make(map[string]string, len(results))
	for _, r := range results {
		pathByID[r.Chunk.ID] = r.Chunk.FilePath
	}

	var sources []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if path == "" {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		sources = append(sources, path)
	}

	for _, id := range citedIDs {
		add(pathByID[id])
	}
	for _, r := range results {
		add(r.Chunk.FilePath)
	}
	return sources
}
