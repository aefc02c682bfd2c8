package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bull/docqa/internal/mcp"
)

// modelName returns the model behind an embedder or chat model, or "" for ones that
// do not report it.
func modelName(v any) string {
	if m, ok := v.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

func newServeCommand(deps Deps, flags *flagValues) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document index as MCP tools",
		Long: `Load and index documents like the interactive mode, then expose ask_documents,
search_documents and index_status over MCP. Without --http the server speaks stdio and
all progress goes to stderr; with --http it serves /mcp and /health.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags(), deps.LookupEnv)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

			ctx := cmd.Context()
			progress := cmd.ErrOrStderr()
			p, err := openPipeline(ctx, cfg, deps, progress, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Index:        p.index,
				Answerer:     p.retriever,
				Store:        cfg.Store,
				DocsPath:     cfg.DocsPath,
				SourceCommit: p.sourceCommit(),

				EmbeddingModel: modelName(p.embedder),
				ChatModel:      modelName(p.chat),
			})
			if err != nil {
				return err
			}

			if httpAddr != "" {
				fmt.Fprintf(progress, "\nServing MCP on %s (MCP at /mcp, health at /health)\n", httpAddr)
				return mcp.RunHTTP(ctx, httpAddr, mcp.NewMux(server, p.store, logger))
			}

			fmt.Fprintln(progress, "\nServing MCP over stdio...")
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio (e.g. :8080)")
	return cmd
}
