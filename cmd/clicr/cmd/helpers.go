package cmd

import (
	"path/filepath"

	"github.com/jagdteam/clicr/internal/config"
	"github.com/jagdteam/clicr/internal/embed"
	"github.com/jagdteam/clicr/internal/history"
	"github.com/jagdteam/clicr/internal/llm"
	"github.com/jagdteam/clicr/internal/store"
	"github.com/jagdteam/clicr/internal/tracker"
)

// project bundles the resolved configuration and filesystem layout for
// the codebase the command operates on.
type project struct {
	cfg     *config.Config
	root    string
	dataDir string
}

// resolveProject locates the project root, loads configuration, and
// resolves the data directory. An explicit root or data dir overrides
// the detected defaults.
func resolveProject(explicitRoot, explicitDataDir string) (*project, error) {
	start := "."
	if explicitRoot != "" {
		start = explicitRoot
	}

	root, err := config.FindProjectRoot(start)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataPath(root)
	if explicitDataDir != "" {
		dataDir = explicitDataDir
	}

	return &project{cfg: cfg, root: root, dataDir: dataDir}, nil
}

// newEmbedder builds the Cohere embedder with an in-memory cache in front.
func (p *project) newEmbedder() (embed.Embedder, error) {
	inner, err := embed.NewCohereEmbedder(embed.Config{
		APIKey:     p.cfg.Cohere.APIKey,
		BaseURL:    p.cfg.Cohere.BaseURL,
		Model:      p.cfg.Cohere.EmbedModel,
		BatchSize:  p.cfg.Cohere.BatchSize,
		Timeout:    p.cfg.Cohere.Timeout,
		MaxRetries: embed.DefaultMaxRetries,
	})
	if err != nil {
		return nil, err
	}
	return embed.NewCachedEmbedder(inner, embed.DefaultEmbeddingCacheSize), nil
}

// newChatClient builds the Cohere chat client.
func (p *project) newChatClient() (llm.Client, error) {
	return llm.NewCohereClient(llm.Config{
		APIKey:      p.cfg.Cohere.APIKey,
		BaseURL:     p.cfg.Cohere.BaseURL,
		Model:       p.cfg.Cohere.ChatModel,
		Temperature: p.cfg.Cohere.Temperature,
		Timeout:     p.cfg.Cohere.Timeout,
		MaxRetries:  llm.DefaultMaxRetries,
	})
}

// openIndex opens the vector and chunk stores in the data directory.
func (p *project) openIndex(dimensions int) (*store.Index, error) {
	return store.Open(p.dataDir, dimensions)
}

// loadTracker loads the per-file hash state.
func (p *project) loadTracker() (*tracker.Tracker, error) {
	return tracker.Load(filepath.Join(p.dataDir, tracker.StateFileName))
}

// sessionStore opens the chat session store in the history directory.
func (p *project) sessionStore() *history.Store {
	return history.NewStore(p.cfg.Storage.HistoryDir)
}

// queryLog loads the rolling query log from the history directory.
func (p *project) queryLog() (*history.QueryLog, error) {
	return history.LoadQueryLog(p.cfg.Storage.HistoryDir)
}

// indexExists reports whether a saved vector index is present.
func (p *project) indexExists() bool {
	return store.VectorFileExists(filepath.Join(p.dataDir, store.VectorFileName))
}
