package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.K)
	assert.Equal(t, "./chroma_db", cfg.PersistDir)
	assert.Equal(t, "documents", cfg.Collection)
	assert.Equal(t, StoreLocal, cfg.Store)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.ChatModel)
}

func TestLoad_EnvFileDoesNotTouchProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "# comment\n\nOPENAI_API_KEY=sk-from-file\nDOCQA_TEST_ONLY_KEY=leak\n")

	cfg, err := Load("", envPath, mapLookup(nil))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.OpenAI.APIKey)
	_, set := os.LookupEnv("DOCQA_TEST_ONLY_KEY")
	assert.False(t, set, "env file must not be injected into the process environment")
}

func TestLoad_ProcessEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "OPENAI_API_KEY=sk-file\nQDRANT_PORT=7000\n")

	cfg, err := Load("", envPath, mapLookup(map[string]string{
		"OPENAI_API_KEY": "sk-env",
		"DOCQA_STORE":    "QDRANT",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, StoreQdrant, cfg.Store)
	assert.Equal(t, 7000, cfg.Qdrant.Port)
}

func TestLoad_MissingEnvFileIsNotAnError(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "nope.env"), mapLookup(nil))
	require.NoError(t, err)
	assert.Empty(t, cfg.OpenAI.APIKey)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "docqa.yaml", `
chunk_size: 500
chunk_overlap: 50
k: 6
collection: handbook
openai:
  chat_model: gpt-4o-mini
  base_url: http://localhost:11434/v1
`)

	cfg, err := Load(yamlPath, "", mapLookup(map[string]string{"OPENAI_BASE_URL": "http://proxy/v1"}))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 6, cfg.K)
	assert.Equal(t, "handbook", cfg.Collection)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.ChatModel)
	assert.Equal(t, DefaultEmbeddingModel, cfg.OpenAI.EmbeddingModel, "unset YAML keys keep defaults")
	assert.Equal(t, "http://proxy/v1", cfg.OpenAI.BaseURL)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "chunk_size: [oops")
	_, err := Load(path, "", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.OpenAI.APIKey = "sk-test"
		cfg.DocsPath = "./docs"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing key", func(c *Config) { c.OpenAI.APIKey = "  " }, ErrMissingAPIKey},
		{"missing key reported before docs", func(c *Config) { c.OpenAI.APIKey = ""; c.DocsPath = "" }, ErrMissingAPIKey},
		{"missing docs", func(c *Config) { c.DocsPath = "" }, ErrInvalidConfig},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidConfig},
		{"overlap too big", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidConfig},
		{"zero k", func(c *Config) { c.K = 0 }, ErrInvalidConfig},
		{"unknown store", func(c *Config) { c.Store = "chroma" }, ErrInvalidConfig},
		{"qdrant without port", func(c *Config) { c.Store = StoreQdrant; c.Qdrant.Port = 0 }, ErrInvalidConfig},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
