package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bull/docqa/internal/retriever"
)

const maxLineBytes = 1024 * 1024

// Session is the interactive question loop.
type Session struct {
	p           *pipeline
	in          io.Reader
	out         io.Writer
	showContext bool
}

func newSession(p *pipeline, in io.Reader, out io.Writer) *Session {
	return &Session{p: p, in: in, out: out, showContext: true}
}

// Run prints the ready banner and answers questions until quit, EOF or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "\n"+rule)
	fmt.Fprintln(s.out, "Ready! Ask questions about your documents.")
	fmt.Fprintln(s.out, "Type 'quit' to exit.")
	fmt.Fprintln(s.out, "Type 'reindex' to reload and reindex documents from the folder.")
	fmt.Fprintln(s.out, rule)
	fmt.Fprintln(s.out)

	done := make(chan struct{})
	defer close(done)
	lines := readLines(s.in, done)

	for {
		fmt.Fprint(s.out, "\nQuestion: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out, "\n\nGoodbye!")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out, "\n\nGoodbye!")
				return nil
			}
			line = l
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "quit":
			fmt.Fprintln(s.out, "\nGoodbye!")
			return nil
		case "reindex":
			s.reindex(ctx)
		default:
			s.ask(ctx, input)
		}

		if ctx.Err() != nil {
			fmt.Fprintln(s.out, "\n\nGoodbye!")
			return nil
		}
	}
}

func (s *Session) reindex(ctx context.Context) {
	if err := s.p.Reindex(ctx, s.out); err != nil {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(s.out, "\nError during reindexing: %v\n", err)
		fmt.Fprintln(s.out, "The previous index is still available.")
	}
}

func (s *Session) ask(ctx context.Context, question string) {
	fmt.Fprintln(s.out, "\nSearching documents...")

	result, err := s.p.retriever.Answer(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(s.out, "\nError: %v\n", err)
		fmt.Fprintln(s.out, "Please try again or type 'quit' to exit.")
		return
	}

	fmt.Fprintln(s.out, "\n"+retriever.FormatResponse(result, s.showContext))
}

// readLines feeds lines from r until EOF or done is closed. The channel is closed at EOF.
func readLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
