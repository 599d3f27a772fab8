package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)

	assert.Equal(t, "https://api.cohere.com", cfg.Cohere.BaseURL)
	assert.Equal(t, "embed-english-v3.0", cfg.Cohere.EmbedModel)
	assert.Equal(t, "command-r-plus-08-2024", cfg.Cohere.ChatModel)
	assert.Equal(t, 96, cfg.Cohere.BatchSize)
	assert.Equal(t, 0.3, cfg.Cohere.Temperature)
	assert.Equal(t, 60*time.Second, cfg.Cohere.Timeout)

	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 5, cfg.Retrieval.HistoryWindow)

	assert.Equal(t, ".clicr", cfg.Storage.DataDir)
	assert.NotEmpty(t, cfg.Storage.HistoryDir)

	assert.Equal(t, 10*time.Second, cfg.Watch.Interval)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Contains(t, cfg.Crawl.AllowedExtensions, ".go")
	assert.Contains(t, cfg.Crawl.AllowedExtensions, ".py")
	assert.Contains(t, cfg.Crawl.AllowedExtensions, ".md")
	assert.Contains(t, cfg.Crawl.IgnoreDirs, "node_modules")
	assert.Contains(t, cfg.Crawl.IgnoreDirs, ".git")
	assert.Contains(t, cfg.Crawl.IgnoreDirs, ".clicr")
	assert.Contains(t, cfg.Crawl.IgnoreFiles, "package-lock.json")
}

func TestDefaults_AreValid(t *testing.T) {
	require.NoError(t, NewConfig().Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
chunking:
  size: 800
  overlap: 100
cohere:
  chat_model: command-r-08-2024
retrieval:
  top_k: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".clicr.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, "command-r-08-2024", cfg.Cohere.ChatModel)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	// Untouched fields keep defaults
	assert.Equal(t, "embed-english-v3.0", cfg.Cohere.EmbedModel)
}

func TestLoad_YmlFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".clicr.yml"), []byte("retrieval:\n  top_k: 3\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".clicr.yaml"), []byte("chunking: [not a map"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".clicr.yaml"), []byte("retrieval:\n  top_k: 3\n"), 0o644))

	t.Setenv("CLICR_TOP_K", "7")
	t.Setenv("CLICR_CHAT_MODEL", "command-r7b-12-2024")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, "command-r7b-12-2024", cfg.Cohere.ChatModel)
}

func TestLoad_DotEnvProvidesAPIKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COHERE_API_KEY=from-dotenv\n"), 0o644))

	// godotenv mutates process env; make sure the key is clear before and after.
	t.Setenv("COHERE_API_KEY", "")
	os.Unsetenv("COHERE_API_KEY")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Cohere.APIKey)
}

func TestLoad_EnvAPIKeyWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COHERE_API_KEY=from-dotenv\n"), 0o644))

	t.Setenv("COHERE_API_KEY", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Cohere.APIKey)
}

func TestValidate_RejectsBadChunking(t *testing.T) {
	cfg := NewConfig()
	cfg.Chunking.Size = 0
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Chunking.Overlap = 500
	assert.Error(t, cfg.Validate(), "overlap equal to size must be rejected")

	cfg = NewConfig()
	cfg.Chunking.Overlap = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadBatchSize(t *testing.T) {
	cfg := NewConfig()
	cfg.Cohere.BatchSize = 0
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.Cohere.BatchSize = 97
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadTemperature(t *testing.T) {
	cfg := NewConfig()
	cfg.Cohere.Temperature = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadTopK(t *testing.T) {
	cfg := NewConfig()
	cfg.Retrieval.TopK = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestRequireAPIKey(t *testing.T) {
	cfg := NewConfig()
	assert.Error(t, cfg.RequireAPIKey())

	cfg.Cohere.APIKey = "key"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestDataPath(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, filepath.Join("/proj", ".clicr"), cfg.DataPath("/proj"))

	cfg.Storage.DataDir = "/abs/state"
	assert.Equal(t, "/abs/state", cfg.DataPath("/proj"))
}

func TestFindProjectRoot_FindsGitDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindProjectRoot(nested)
	require.NoError(t, err)
	// TempDir may involve symlinks on some platforms, compare resolved paths
	wantResolved, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestFindProjectRoot_FallsBackToStartDir(t *testing.T) {
	dir := t.TempDir()

	found, err := FindProjectRoot(dir)
	require.NoError(t, err)

	wantResolved, _ := filepath.EvalSymlinks(dir)
	gotResolved, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".clicr.yaml")

	cfg := NewConfig()
	cfg.Retrieval.TopK = 8
	require.NoError(t, cfg.WriteYAML(path))

	loaded := NewConfig()
	require.NoError(t, loaded.loadYAML(path))
	assert.Equal(t, 8, loaded.Retrieval.TopK)
}
