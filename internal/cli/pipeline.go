package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bull/docqa/internal/config"
	"github.com/bull/docqa/internal/document"
	"github.com/bull/docqa/internal/embedding"
	"github.com/bull/docqa/internal/indexer"
	"github.com/bull/docqa/internal/llm"
	"github.com/bull/docqa/internal/loader"
	"github.com/bull/docqa/internal/retriever"
	ghsource "github.com/bull/docqa/internal/source/github"
	"github.com/bull/docqa/internal/splitter"
	"github.com/bull/docqa/internal/storage"
)

const ruleWidth = 60

var rule = strings.Repeat("=", ruleWidth)

// reportedError marks an error whose user-facing message was already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error { return &reportedError{err: err} }

// documentSource is where documents are (re)loaded from.
type documentSource interface {
	Load(ctx context.Context) ([]document.Document, error)
}

type folderSource struct {
	loader *loader.Loader
	dir    string
}

func (s folderSource) Load(ctx context.Context) ([]document.Document, error) {
	return s.loader.LoadFolder(ctx, s.dir)
}

type githubSource struct {
	loader  *loader.Loader
	fetcher *ghsource.Fetcher
}

func (s githubSource) Load(ctx context.Context) ([]document.Document, error) {
	return s.loader.LoadRemote(ctx, s.fetcher)
}

func (s githubSource) LatestCommitSHA(ctx context.Context) (string, error) {
	return s.fetcher.LatestCommitSHA(ctx)
}

func resolveSource(cfg *config.Config, deps Deps, ld *loader.Loader, logger *slog.Logger) (documentSource, error) {
	if ghsource.IsLocation(cfg.DocsPath) {
		loc, err := ghsource.ParseLocation(cfg.DocsPath)
		if err != nil {
			return nil, err
		}
		client, err := deps.NewGitHub(cfg.GitHubToken, logger)
		if err != nil {
			return nil, fmt.Errorf("create github client: %w", err)
		}
		return githubSource{
			loader:  ld,
			fetcher: ghsource.NewFetcher(client, loc, ghsource.WithFilter(loader.SupportedPath)),
		}, nil
	}

	info, err := os.Stat(cfg.DocsPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", loader.ErrFolderNotFound, cfg.DocsPath)
	}
	return folderSource{loader: ld, dir: cfg.DocsPath}, nil
}

// pipeline is the loaded state of one run: the source, the open store and the current
// index and retriever. Reindex swaps the index and retriever only on success.
type pipeline struct {
	cfg       *config.Config
	source    documentSource
	store     storage.VectorStore
	indexer   *indexer.Indexer
	embedder  embedding.Embedder
	chat      llm.ChatModel
	index     *indexer.Index
	retriever *retriever.Retriever
	logger    *slog.Logger
}

// openPipeline runs the setup stage, printing progress to out. Every error it returns
// has already been reported to the user.
func openPipeline(ctx context.Context, cfg *config.Config, deps Deps, out io.Writer, logger *slog.Logger) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(out, "Error: OPENAI_API_KEY environment variable is required.")
			fmt.Fprintln(out, "Please set it in your .env file or as an environment variable.")
			fmt.Fprintln(out, "Get your API key from: https://platform.openai.com/api-keys")
			return nil, reported(err)
		}
		fmt.Fprintf(out, "Error: %v\n", err)
		return nil, reported(err)
	}

	// Only the real runner needs the tools on PATH.
	if _, ok := deps.Runner.(loader.ExecRunner); ok {
		for _, tool := range loader.CheckAvailable() {
			logger.Warn("extraction tool not found, matching files will be skipped",
				"tool", tool, "hint", loader.InstallInstructions(tool))
		}
	}

	ld := loader.New(
		loader.WithRunner(deps.Runner),
		loader.WithLogger(logger),
		loader.WithProgress(out),
	)
	source, err := resolveSource(cfg, deps, ld, logger)
	if err != nil {
		if errors.Is(err, loader.ErrFolderNotFound) {
			fmt.Fprintf(out, "Error: Folder not found: %s\n", cfg.DocsPath)
		} else {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		return nil, reported(err)
	}

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "AI Document Q&A Agent")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 1: Loading documents...")
	docs, err := source.Load(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error loading documents: %v\n", err)
		return nil, reported(err)
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "Error: No documents found in the specified folder.")
		return nil, reported(indexer.ErrNoDocuments)
	}

	fmt.Fprintln(out, "\nStep 2: Indexing documents...")
	p := &pipeline{cfg: cfg, source: source, logger: logger}
	if err := p.openIndex(ctx, deps, docs, out); err != nil {
		fmt.Fprintf(out, "Error indexing documents: %v\n", err)
		p.Close()
		return nil, reported(err)
	}

	fmt.Fprintln(out, "\nStep 3: Initializing QA system...")
	chat, err := deps.NewChat(cfg)
	if err != nil {
		fmt.Fprintf(out, "Error initializing QA system: %v\n", err)
		p.Close()
		return nil, reported(err)
	}
	p.chat = chat
	p.retriever = retriever.New(p.index, chat, cfg.K)

	return p, nil
}

func (p *pipeline) openIndex(ctx context.Context, deps Deps, docs []document.Document, out io.Writer) error {
	split, err := splitter.New(p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return err
	}
	embedder, err := deps.NewEmbedder(p.cfg)
	if err != nil {
		return err
	}
	store, err := deps.OpenStore(ctx, p.cfg)
	if err != nil {
		return err
	}
	p.store = store
	p.embedder = embedder
	p.indexer = indexer.New(split, embedder, store, p.logger, out)

	index, err := p.indexer.OpenOrBuild(ctx, docs, p.cfg.Collection, p.cfg.Reindex)
	if err != nil {
		return err
	}
	p.logger.Debug("index ready", "collection", index.Collection(), "origin", index.Origin())
	p.index = index
	return nil
}

// Reindex reloads the source and rebuilds the index. On error, or when the reload
// finds nothing, the current index and retriever stay in place.
func (p *pipeline) Reindex(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "\n"+rule)
	fmt.Fprintln(out, "Reindexing documents...")
	fmt.Fprintln(out, rule)

	fmt.Fprintln(out, "\nStep 1: Reloading documents from folder...")
	docs, err := p.source.Load(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "Warning: No documents found in the folder.")
		return nil
	}

	fmt.Fprintln(out, "\nStep 2: Reindexing documents...")
	index, err := p.indexer.IndexDocuments(ctx, docs, p.cfg.Collection)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nStep 3: Updating QA system...")
	p.index = index
	p.retriever = retriever.New(index, p.chat, p.cfg.K)

	fmt.Fprintln(out, "\n"+rule)
	fmt.Fprintln(out, "Reindexing complete! The database has been updated.")
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
	return nil
}

// sourceCommit returns the commit lookup of a GitHub source, nil otherwise.
func (p *pipeline) sourceCommit() func(context.Context) (string, error) {
	if gh, ok := p.source.(githubSource); ok {
		return gh.LatestCommitSHA
	}
	return nil
}

func (p *pipeline) Close() {
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.logger.Warn("failed to close vector store", "error", err)
	}
}
