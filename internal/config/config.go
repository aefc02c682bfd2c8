// Package config builds the explicit runtime configuration for docqa.
//
// Values are layered: defaults, then an optional YAML file, then a KEY=VALUE env file,
// then the process environment, then command-line flags (applied by the cli package).
// The env file is read into the Config only; it never modifies the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreLocal  = "local"
	StoreQdrant = "qdrant"
)

// Defaults mirror the command-line defaults.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultK              = 4
	DefaultPersistDir     = "./chroma_db"
	DefaultCollection     = "documents"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "gpt-3.5-turbo"
	DefaultEnvFile        = ".env"
	DefaultQdrantHost     = "localhost"
	DefaultQdrantPort     = 6334
)

var (
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is everything the pipeline needs. It is passed to constructors explicitly.
type Config struct {
	DocsPath     string `yaml:"docs"`
	Reindex      bool   `yaml:"reindex"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	K            int    `yaml:"k"`

	PersistDir string `yaml:"persist_dir"`
	Collection string `yaml:"collection"`
	Store      string `yaml:"store"`

	OpenAI OpenAIConfig `yaml:"openai"`
	Qdrant QdrantConfig `yaml:"qdrant"`

	GitHubToken string `yaml:"-"`
	Verbose     bool   `yaml:"verbose"`
}

// OpenAIConfig configures the embeddings and chat-completion provider.
// BaseURL lets any OpenAI-compatible endpoint stand in for the vendor API.
type OpenAIConfig struct {
	APIKey         string `yaml:"-"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
}

// QdrantConfig contains connection details for the Qdrant backend.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		K:            DefaultK,
		PersistDir:   DefaultPersistDir,
		Collection:   DefaultCollection,
		Store:        StoreLocal,
		OpenAI: OpenAIConfig{
			EmbeddingModel: DefaultEmbeddingModel,
			ChatModel:      DefaultChatModel,
		},
		Qdrant: QdrantConfig{
			Host: DefaultQdrantHost,
			Port: DefaultQdrantPort,
		},
	}
}

// Load builds a Config from defaults, the YAML file at yamlPath (skipped when empty),
// the env file at envPath (skipped when missing) and the given environment lookup.
// Pass os.LookupEnv for the real process environment.
func Load(yamlPath, envPath string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := cfg.mergeYAML(yamlPath); err != nil {
			return nil, err
		}
	}

	fileEnv, err := ReadEnvFile(envPath)
	if err != nil {
		return nil, err
	}

	env := func(key string) string {
		if lookup != nil {
			if v, ok := lookup(key); ok && v != "" {
				return v
			}
		}
		return fileEnv[key]
	}

	cfg.applyEnv(env)
	return cfg, nil
}

// ReadEnvFile parses a KEY=VALUE file. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(env func(string) string) {
	if v := env("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := env("OPENAI_BASE_URL"); v != "" {
		c.OpenAI.BaseURL = v
	}
	if v := env("GITHUB_TOKEN"); v != "" {
		c.GitHubToken = v
	}
	if v := env("DOCQA_STORE"); v != "" {
		c.Store = strings.ToLower(v)
	}
	if v := env("QDRANT_HOST"); v != "" {
		c.Qdrant.Host = v
	}
	if v := env("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Qdrant.Port = port
		}
	}
}

// Validate checks ranges and required values. The API key is checked first so a
// missing key is reported before anything else is attempted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.DocsPath == "" {
		return fmt.Errorf("%w: --docs is required", ErrInvalidConfig)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	}
	if c.K <= 0 {
		return fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, c.K)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name is empty", ErrInvalidConfig)
	}
	switch c.Store {
	case StoreLocal:
		if c.PersistDir == "" {
			return fmt.Errorf("%w: persist directory is empty", ErrInvalidConfig)
		}
	case StoreQdrant:
		if c.Qdrant.Host == "" || c.Qdrant.Port <= 0 {
			return fmt.Errorf("%w: qdrant host/port not set", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q (want %s or %s)", ErrInvalidConfig, c.Store, StoreLocal, StoreQdrant)
	}
	return nil
}
