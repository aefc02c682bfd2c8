package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/llm"
	"github.com/bull/docqa/internal/loader"
	ghsource "github.com/bull/docqa/internal/source/github"
	"github.com/bull/docqa/internal/storage"
)

// Deps are the factories the commands build their collaborators with. Tests swap
// them for in-memory fakes; zero fields fall back to the production implementations.
type Deps struct {
	LookupEnv   func(key string) (string, bool)
	NewEmbedder func(cfg *config.Config) (embedding.Embedder, error)
	NewChat     func(cfg *config.Config) (llm.ChatModel, error)
	OpenStore   func(ctx context.Context, cfg *config.Config) (storage.VectorStore, error)
	NewGitHub   func(token string, logger *slog.Logger) (*ghsource.Client, error)
	Runner      loader.CommandRunner
}

// DefaultDeps returns the production factories.
func DefaultDeps() Deps {
	return Deps{
		LookupEnv:   os.LookupEnv,
		NewEmbedder: newOpenAIEmbedder,
		NewChat:     newOpenAIChat,
		OpenStore:   openStore,
		NewGitHub:   ghsource.NewClient,
		Runner:      loader.ExecRunner{},
	}
}

func (d Deps) withDefaults() Deps {
	def := DefaultDeps()
	if d.LookupEnv == nil {
		d.LookupEnv = def.LookupEnv
	}
	if d.NewEmbedder == nil {
		d.NewEmbedder = def.NewEmbedder
	}
	if d.NewChat == nil {
		d.NewChat = def.NewChat
	}
	if d.OpenStore == nil {
		d.OpenStore = def.OpenStore
	}
	if d.NewGitHub == nil {
		d.NewGitHub = def.NewGitHub
	}
	if d.Runner == nil {
		d.Runner = def.Runner
	}
	return d
}

func newOpenAIEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	client, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		return nil, err
	}
	return embedding.NewOpenAIEmbedder(client, cfg.OpenAI.EmbeddingModel, embedding.DefaultBatchSize), nil
}

func newOpenAIChat(cfg *config.Config) (llm.ChatModel, error) {
	client, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		return nil, err
	}
	return llm.NewOpenAIChat(client.Client(), cfg.OpenAI.ChatModel), nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.VectorStore, error) {
	if cfg.Store == config.StoreQdrant {
		store, err := storage.NewQdrantStorage(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := storage.NewSQLiteStore(cfg.PersistDir)
	if err != nil {
		return nil, err
	}
	return store, nil
}
