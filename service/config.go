package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/scy/cred/secret"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "~/docrag/config.yaml"

// Config defines the process-wide settings.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Store     StoreConfig     `yaml:"store"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Generator GeneratorConfig `yaml:"generator"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`
	MCPServer MCPServerConfig `yaml:"mcpServer"`
}

// CorpusConfig defines the document root and its filters.
type CorpusConfig struct {
	Root         string   `yaml:"root"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	MaxSizeBytes int64    `yaml:"maxSizeBytes"`
}

// StoreConfig defines vector store settings.
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Secret   string `yaml:"secret,omitempty"`
	Dataset  string `yaml:"dataset,omitempty"`
	Snapshot string `yaml:"snapshot,omitempty"`
}

// EmbedderConfig defines the embeddings provider.
type EmbedderConfig struct {
	Name        string   `yaml:"name"`
	Model       string   `yaml:"model"`
	BaseURL     string   `yaml:"baseURL,omitempty"`
	APIKey      string   `yaml:"apiKey,omitempty"`
	Project     string   `yaml:"project,omitempty"`
	Location    string   `yaml:"location,omitempty"`
	Scopes      []string `yaml:"scopes,omitempty"`
	Dimension   int      `yaml:"dimension,omitempty"`
	BatchSize   int      `yaml:"batchSize,omitempty"`
	Concurrency int      `yaml:"concurrency,omitempty"`
	RateLimit   float64  `yaml:"rateLimit,omitempty"`
	Normalize   *bool    `yaml:"normalize,omitempty"`
}

// Tag returns the embedding model tag stored with every chunk.
func (e EmbedderConfig) Tag() string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + ":" + e.Model
}

// GeneratorConfig defines the answer model.
type GeneratorConfig struct {
	Name           string `yaml:"name"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"baseURL,omitempty"`
	APIKey         string `yaml:"apiKey,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
	MaxTokens      int    `yaml:"maxTokens,omitempty"`
}

// ChunkingConfig holds the default chunk parameters.
type ChunkingConfig struct {
	Length  int `yaml:"length"`
	Overlap int `yaml:"overlap"`
}

// RetrievalConfig holds retrieval settings.
type RetrievalConfig struct {
	TopK int `yaml:"topK"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MCPServerConfig defines MCP server settings.
type MCPServerConfig struct {
	Addr string `yaml:"addr"`
	Port int    `yaml:"port"`
}

// Enabled reports whether the MCP server should run.
func (m MCPServerConfig) Enabled() bool {
	return m.Port > 0 || strings.TrimSpace(m.Addr) != ""
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Corpus:    CorpusConfig{Root: "~/docrag/documents"},
		Store:     StoreConfig{Driver: "sqlitevec", DSN: "~/docrag/docrag.sqlite", Dataset: "docrag"},
		Embedder:  EmbedderConfig{Name: "openai", Model: "text-embedding-3-small"},
		Generator: GeneratorConfig{Name: "openai", Model: "gpt-4o-mini", TimeoutSeconds: 60},
		Chunking:  ChunkingConfig{Length: 1000, Overlap: 200},
		Retrieval: RetrievalConfig{TopK: 5},
		Server:    ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads path over the defaults. A missing file at the default location yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath
	}
	expanded, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", expanded, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, err
	}
	if err := cfg.resolve(context.Background()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolve(ctx context.Context) error {
	c.ApplyEnv()
	var err error
	if c.Corpus.Root, err = expandUserPath(c.Corpus.Root); err != nil {
		return err
	}
	if c.Store.Snapshot, err = expandUserPath(c.Store.Snapshot); err != nil {
		return err
	}
	if c.Store.DSN, err = expandStoreDSN(c.Store.DSN, c.Store.Driver); err != nil {
		return err
	}
	if c.Store.Secret != "" {
		if c.Store.DSN, err = ExpandDSNWithSecret(ctx, c.Store.DSN, c.Store.Secret); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv fills credentials and endpoints left empty from the environment.
func (c *Config) ApplyEnv() {
	c.Embedder.APIKey = firstNonEmpty(c.Embedder.APIKey, envKey(c.Embedder.Name))
	c.Generator.APIKey = firstNonEmpty(c.Generator.APIKey, envKey(c.Generator.Name))
	if c.Embedder.Name == "vertexai" {
		c.Embedder.Project = firstNonEmpty(c.Embedder.Project, os.Getenv("VERTEXAI_PROJECT_ID"))
	}
	if c.Embedder.Name == "ollama" {
		c.Embedder.BaseURL = firstNonEmpty(c.Embedder.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
	}
	if c.Generator.Name == "ollama" {
		c.Generator.BaseURL = firstNonEmpty(c.Generator.BaseURL, os.Getenv("OLLAMA_BASE_URL"))
	}
}

func envKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func expandUserPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return path, nil
	}
	if trimmed[0] != '~' && !strings.HasPrefix(trimmed, "file:") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(trimmed, "file:") {
		prefix := "file://"
		rest := strings.TrimPrefix(trimmed, prefix)
		if rest == trimmed {
			prefix = "file:"
			rest = strings.TrimPrefix(trimmed, prefix)
		}
		rest = strings.TrimLeft(rest, "/")
		if !strings.HasPrefix(rest, "~") {
			return path, nil
		}
		abs := filepath.ToSlash(filepath.Join(home, strings.TrimPrefix(rest, "~")))
		return prefix + "/" + strings.TrimLeft(abs, "/"), nil
	}
	if trimmed == "~" {
		return home, nil
	}
	if !strings.HasPrefix(trimmed, "~/") {
		return "", fmt.Errorf("config: unsupported ~user path: %s", path)
	}
	return filepath.Join(home, trimmed[2:]), nil
}

func expandStoreDSN(dsn, driver string) (string, error) {
	if dsn == "" {
		return dsn, nil
	}
	switch driver {
	case "mysql", "postgres":
		return dsn, nil
	}
	return expandUserPath(dsn)
}

// ExpandDSNWithSecret loads a secret and expands placeholders in the DSN.
func ExpandDSNWithSecret(ctx context.Context, dsn, secretRef string) (string, error) {
	secretRef = strings.TrimSpace(secretRef)
	if secretRef == "" {
		return dsn, nil
	}
	if strings.TrimSpace(dsn) == "" {
		return "", fmt.Errorf("secret %q provided but dsn is empty", secretRef)
	}
	svc := secret.New()
	sec, err := svc.Lookup(ctx, secret.Resource(secretRef))
	if err != nil {
		return "", err
	}
	return sec.Expand(dsn), nil
}
