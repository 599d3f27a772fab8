// Package config loads and validates clicr configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/clicr/config.yaml)
//  3. Project config (.clicr.yaml in project root)
//  4. .env file in the project root (COHERE_API_KEY)
//  5. Environment variables (CLICR_*, COHERE_API_KEY)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete clicr configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Crawl     CrawlConfig     `yaml:"crawl" json:"crawl"`
	Chunking  ChunkingConfig  `yaml:"chunking" json:"chunking"`
	Cohere    CohereConfig    `yaml:"cohere" json:"cohere"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	LogLevel  string          `yaml:"log_level" json:"log_level"`
}

// CrawlConfig configures which files are picked up during indexing.
type CrawlConfig struct {
	// AllowedExtensions is the extension allow-list (with leading dot).
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
	// IgnoreDirs are directory names skipped entirely.
	IgnoreDirs []string `yaml:"ignore_dirs" json:"ignore_dirs"`
	// IgnoreFiles are file names skipped even when the extension matches.
	IgnoreFiles []string `yaml:"ignore_files" json:"ignore_files"`
	// MaxFileSize is the maximum file size in bytes (default: 10MB).
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// ChunkingConfig configures the sliding-window chunker.
type ChunkingConfig struct {
	// Size is the chunk window in characters.
	Size int `yaml:"size" json:"size"`
	// Overlap is the number of characters shared between adjacent chunks.
	Overlap int `yaml:"overlap" json:"overlap"`
}

// CohereConfig configures the Cohere API client.
type CohereConfig struct {
	// APIKey is never read from YAML, only from the environment.
	APIKey string `yaml:"-" json:"-"`

	BaseURL     string  `yaml:"base_url" json:"base_url"`
	EmbedModel  string  `yaml:"embed_model" json:"embed_model"`
	ChatModel   string  `yaml:"chat_model" json:"chat_model"`
	BatchSize   int     `yaml:"batch_size" json:"batch_size"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RetrievalConfig configures retrieval behavior.
type RetrievalConfig struct {
	// TopK is the number of chunks retrieved per question.
	TopK int `yaml:"top_k" json:"top_k"`
	// HistoryWindow is the number of question/answer pairs sent as chat context.
	HistoryWindow int `yaml:"history_window" json:"history_window"`
}

// StorageConfig configures on-disk locations.
type StorageConfig struct {
	// DataDir is the index state directory, relative to the indexed root.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// HistoryDir is where sessions and the query log live.
	// Defaults to ~/.clicr/history.
	HistoryDir string `yaml:"history_dir" json:"history_dir"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Interval is the polling interval between incremental re-index passes.
	Interval time.Duration `yaml:"interval" json:"interval"`
}

// defaultAllowedExtensions is the extension allow-list for source and doc files.
var defaultAllowedExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx",
	".java", ".cpp", ".c", ".h", ".go", ".rs", ".rb", ".php",
	".html", ".css", ".scss",
	".json", ".yaml", ".yml", ".toml",
	".md", ".txt", ".rst",
	".sh", ".sql",
}

// defaultIgnoreDirs are directory names never descended into.
var defaultIgnoreDirs = []string{
	"node_modules", ".git", "__pycache__",
	"venv", "env", ".venv",
	"dist", "build", "target",
	".idea", ".vscode", ".clicr",
}

// defaultIgnoreFiles are file names always skipped.
var defaultIgnoreFiles = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"go.sum", ".env", ".gitignore", ".DS_Store",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Crawl: CrawlConfig{
			AllowedExtensions: defaultAllowedExtensions,
			IgnoreDirs:        defaultIgnoreDirs,
			IgnoreFiles:       defaultIgnoreFiles,
			MaxFileSize:       10 * 1024 * 1024,
		},
		Chunking: ChunkingConfig{
			Size:    500,
			Overlap: 50,
		},
		Cohere: CohereConfig{
			BaseURL:     "https://api.cohere.com",
			EmbedModel:  "embed-english-v3.0",
			ChatModel:   "command-r-plus-08-2024",
			BatchSize:   96,
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK:          5,
			HistoryWindow: 5,
		},
		Storage: StorageConfig{
			DataDir:    ".clicr",
			HistoryDir: defaultHistoryDir(),
		},
		Watch: WatchConfig{
			Interval: 10 * time.Second,
		},
		LogLevel: "info",
	}
}

// defaultHistoryDir returns the default session storage path.
func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".clicr", "history")
	}
	return filepath.Join(home, ".clicr", "history")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/clicr/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/clicr/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clicr", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "clicr", "config.yaml")
	}
	return filepath.Join(home, ".config", "clicr", "config.yaml")
}

// loadUserConfig loads the user configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()

	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// Load loads configuration for the given project directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	// .env populates the process environment for keys not already set,
	// matching dotenv semantics. Missing file is fine.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .clicr.yaml or .clicr.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".clicr.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".clicr.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine, use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if len(other.Crawl.AllowedExtensions) > 0 {
		c.Crawl.AllowedExtensions = other.Crawl.AllowedExtensions
	}
	if len(other.Crawl.IgnoreDirs) > 0 {
		// Merge with defaults rather than replace
		c.Crawl.IgnoreDirs = append(c.Crawl.IgnoreDirs, other.Crawl.IgnoreDirs...)
	}
	if len(other.Crawl.IgnoreFiles) > 0 {
		c.Crawl.IgnoreFiles = append(c.Crawl.IgnoreFiles, other.Crawl.IgnoreFiles...)
	}
	if other.Crawl.MaxFileSize != 0 {
		c.Crawl.MaxFileSize = other.Crawl.MaxFileSize
	}

	if other.Chunking.Size != 0 {
		c.Chunking.Size = other.Chunking.Size
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}

	if other.Cohere.BaseURL != "" {
		c.Cohere.BaseURL = other.Cohere.BaseURL
	}
	if other.Cohere.EmbedModel != "" {
		c.Cohere.EmbedModel = other.Cohere.EmbedModel
	}
	if other.Cohere.ChatModel != "" {
		c.Cohere.ChatModel = other.Cohere.ChatModel
	}
	if other.Cohere.BatchSize != 0 {
		c.Cohere.BatchSize = other.Cohere.BatchSize
	}
	if other.Cohere.Temperature != 0 {
		c.Cohere.Temperature = other.Cohere.Temperature
	}
	if other.Cohere.Timeout != 0 {
		c.Cohere.Timeout = other.Cohere.Timeout
	}

	if other.Retrieval.TopK != 0 {
		c.Retrieval.TopK = other.Retrieval.TopK
	}
	if other.Retrieval.HistoryWindow != 0 {
		c.Retrieval.HistoryWindow = other.Retrieval.HistoryWindow
	}

	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.HistoryDir != "" {
		c.Storage.HistoryDir = other.Storage.HistoryDir
	}

	if other.Watch.Interval != 0 {
		c.Watch.Interval = other.Watch.Interval
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies COHERE_API_KEY and CLICR_* environment overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COHERE_API_KEY"); v != "" {
		c.Cohere.APIKey = v
	}
	if v := os.Getenv("CLICR_COHERE_BASE_URL"); v != "" {
		c.Cohere.BaseURL = v
	}
	if v := os.Getenv("CLICR_EMBED_MODEL"); v != "" {
		c.Cohere.EmbedModel = v
	}
	if v := os.Getenv("CLICR_CHAT_MODEL"); v != "" {
		c.Cohere.ChatModel = v
	}
	if v := os.Getenv("CLICR_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Retrieval.TopK = k
		}
	}
	if v := os.Getenv("CLICR_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Chunking.Size = n
		}
	}
	if v := os.Getenv("CLICR_CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Chunking.Overlap = n
		}
	}
	if v := os.Getenv("CLICR_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("CLICR_HISTORY_DIR"); v != "" {
		c.Storage.HistoryDir = v
	}
	if v := os.Getenv("CLICR_WATCH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Watch.Interval = d
		}
	}
	if v := os.Getenv("CLICR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.overlap must be non-negative, got %d", c.Chunking.Overlap)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}

	if c.Cohere.BatchSize < 1 || c.Cohere.BatchSize > 96 {
		return fmt.Errorf("cohere.batch_size must be between 1 and 96, got %d", c.Cohere.BatchSize)
	}
	if c.Cohere.Temperature < 0 || c.Cohere.Temperature > 1 {
		return fmt.Errorf("cohere.temperature must be between 0 and 1, got %f", c.Cohere.Temperature)
	}

	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.HistoryWindow < 0 {
		return fmt.Errorf("retrieval.history_window must be non-negative, got %d", c.Retrieval.HistoryWindow)
	}

	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

// RequireAPIKey returns an error if no Cohere API key is configured.
func (c *Config) RequireAPIKey() error {
	if c.Cohere.APIKey == "" {
		return fmt.Errorf("COHERE_API_KEY is not set: export it or add it to a .env file")
	}
	return nil
}

// DataPath returns the index state directory for the given project root.
// A relative DataDir is resolved against the root.
func (c *Config) DataPath(root string) string {
	if filepath.IsAbs(c.Storage.DataDir) {
		return c.Storage.DataDir
	}
	return filepath.Join(root, c.Storage.DataDir)
}

// FindProjectRoot finds the project root directory by walking up the
// directory tree looking for a .git directory or a .clicr.yaml/.yml file.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		if fileExists(filepath.Join(currentDir, ".clicr.yaml")) ||
			fileExists(filepath.Join(currentDir, ".clicr.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached filesystem root, fall back to the starting directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
