package cli

import (
	"strings"

	"github.com/spf13/pflag"

	"github.com/bull/docqa/internal/config"
)

// flagValues holds the raw command-line values. Only flags the user actually set
// override the layered configuration.
type flagValues struct {
	configPath string
	envFile    string

	docs         string
	reindex      bool
	chunkSize    int
	chunkOverlap int
	k            int

	persistDir string
	collection string
	store      string
	qdrantHost string
	qdrantPort int

	embeddingModel string
	chatModel      string
	baseURL        string
	verbose        bool
}

func (f *flagValues) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&f.envFile, "env-file", config.DefaultEnvFile, "Path to a KEY=VALUE env file")

	fs.StringVar(&f.docs, "docs", "", "Path to folder containing documents, or github:owner/repo[/path][@ref]")
	fs.BoolVar(&f.reindex, "reindex", false, "Force reindexing even if vector store exists")
	fs.IntVar(&f.chunkSize, "chunk-size", config.DefaultChunkSize, "Size of text chunks")
	fs.IntVar(&f.chunkOverlap, "chunk-overlap", config.DefaultChunkOverlap, "Overlap between chunks")
	fs.IntVar(&f.k, "k", config.DefaultK, "Number of documents to retrieve")

	fs.StringVar(&f.persistDir, "persist-dir", config.DefaultPersistDir, "Directory of the local vector store")
	fs.StringVar(&f.collection, "collection", config.DefaultCollection, "Vector store collection name")
	fs.StringVar(&f.store, "store", config.StoreLocal, "Vector store backend: local or qdrant")
	fs.StringVar(&f.qdrantHost, "qdrant-host", config.DefaultQdrantHost, "Qdrant host")
	fs.IntVar(&f.qdrantPort, "qdrant-port", config.DefaultQdrantPort, "Qdrant gRPC port")

	fs.StringVar(&f.embeddingModel, "embedding-model", config.DefaultEmbeddingModel, "OpenAI embedding model")
	fs.StringVar(&f.chatModel, "chat-model", config.DefaultChatModel, "OpenAI chat model")
	fs.StringVar(&f.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
}

// apply copies every flag the user set onto cfg.
func (f *flagValues) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string) bool { return fs.Changed(name) }

	if set("docs") {
		cfg.DocsPath = f.docs
	}
	if set("reindex") {
		cfg.Reindex = f.reindex
	}
	if set("chunk-size") {
		cfg.ChunkSize = f.chunkSize
	}
	if set("chunk-overlap") {
		cfg.ChunkOverlap = f.chunkOverlap
	}
	if set("k") {
		cfg.K = f.k
	}
	if set("persist-dir") {
		cfg.PersistDir = f.persistDir
	}
	if set("collection") {
		cfg.Collection = f.collection
	}
	if set("store") {
		cfg.Store = strings.ToLower(f.store)
	}
	if set("qdrant-host") {
		cfg.Qdrant.Host = f.qdrantHost
	}
	if set("qdrant-port") {
		cfg.Qdrant.Port = f.qdrantPort
	}
	if set("embedding-model") {
		cfg.OpenAI.EmbeddingModel = f.embeddingModel
	}
	if set("chat-model") {
		cfg.OpenAI.ChatModel = f.chatModel
	}
	if set("base-url") {
		cfg.OpenAI.BaseURL = f.baseURL
	}
	if set("verbose") {
		cfg.Verbose = f.verbose
	}
}

// load builds the configuration: defaults, YAML, env file, environment, then flags.
func (f *flagValues) load(fs *pflag.FlagSet, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, f.envFile, lookup)
	if err != nil {
		return nil, err
	}
	f.apply(fs, cfg)
	return cfg, nil
}
