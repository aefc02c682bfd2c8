// Package cli wires configuration, loading, indexing and retrieval into the docqa commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the docqa command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	deps = deps.withDefaults()
	flags := &flagValues{}

	cmd := &cobra.Command{
		Use:   "docqa --docs <path>",
		Short: "AI Agent for Document Question Answering",
		Long: `Index a folder of documents (txt, md, pdf, docx, csv, images) into a vector store
and answer questions about them with an OpenAI chat model.`,
		Example: `  docqa --docs ./sample_docs
  docqa --docs ./sample_docs --reindex
  docqa --docs github:owner/repo/docs@main
  docqa serve --docs ./sample_docs --http :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd.Flags(), deps.LookupEnv)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			p, err := openPipeline(ctx, cfg, deps, out, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			return newSession(p, cmd.InOrStdin(), out).Run(ctx)
		},
	}

	flags.register(cmd.PersistentFlags())
	cmd.AddCommand(newServeCommand(deps, flags))

	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer, deps Deps) int {
	cmd := NewRootCommand(deps)
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var rep *reportedError
		if !errors.As(err, &rep) {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
