// Package loader turns files into documents. Each file is dispatched to a parser by
// extension and every resulting document carries its source path, file name and type.
package loader

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bull/docqa/internal/document"
	"github.com/bull/docqa/internal/markdown"
)

type format int

const (
	formatText format = iota
	formatPDF
	formatDOCX
	formatImage
	formatMarkdown
	formatCSV
)

var formats = map[string]format{
	".txt":      formatText,
	".pdf":      formatPDF,
	".docx":     formatDOCX,
	".doc":      formatDOCX,
	".jpg":      formatImage,
	".jpeg":     formatImage,
	".png":      formatImage,
	".gif":      formatImage,
	".bmp":      formatImage,
	".md":       formatMarkdown,
	".markdown": formatMarkdown,
	".csv":      formatCSV,
}

// SupportedExtensions returns the handled extensions, sorted, with leading dots.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Supported reports whether ext (with or without the leading dot, any case) has a parser.
func Supported(ext string) bool {
	_, ok := lookup(ext)
	return ok
}

// SupportedPath reports whether the file at path has a supported extension.
func SupportedPath(path string) bool {
	return Supported(filepath.Ext(path))
}

func lookup(ext string) (format, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := formats[ext]
	return f, ok
}

// Loader loads documents from local files or from a remote source.
type Loader struct {
	runner    CommandRunner
	sectioner *markdown.Sectioner
	logger    *slog.Logger
	out       io.Writer
}

// Option configures a Loader.
type Option func(*Loader)

// WithRunner sets the runner used for pdftotext and tesseract.
func WithRunner(r CommandRunner) Option {
	return func(l *Loader) { l.runner = r }
}

// WithLogger sets the logger for skipped and failed files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithProgress sets the writer that receives per-file progress lines.
func WithProgress(w io.Writer) Option {
	return func(l *Loader) { l.out = w }
}

// New creates a loader. Progress output is discarded unless WithProgress is given.
func New(opts ...Option) *Loader {
	l := &Loader{
		runner:    ExecRunner{},
		sectioner: markdown.NewSectioner(),
		logger:    slog.Default(),
		out:       io.Discard,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDocument loads one file. Unsupported extensions and parse failures are logged
// and produce no documents.
func (l *Loader) LoadDocument(ctx context.Context, path string) []document.Document {
	if !SupportedPath(path) {
		l.logger.Warn("unsupported file format", "ext", filepath.Ext(path), "path", path)
		return nil
	}

	content, err := os.ReadFile(path) //nolint:gosec // path comes from the user's document folder
	if err != nil {
		l.logger.Warn("failed to read file", "path", path, "error", err)
		return nil
	}

	docs, err := l.parse(ctx, path, path, content)
	if err != nil {
		l.logger.Warn("failed to load file", "path", path, "error", err)
		return nil
	}
	return docs
}

// LoadFolder loads every supported file under dir, recursively, in walk order.
// Hidden directories are skipped. Unreadable entries are logged and skipped.
func (l *Loader) LoadFolder(ctx context.Context, dir string) ([]document.Document, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, dir)
	}

	var docs []document.Document
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			l.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !SupportedPath(path) {
			return nil
		}

		fmt.Fprintf(l.out, "Loading: %s\n", d.Name())
		docs = append(docs, l.LoadDocument(ctx, path)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	fmt.Fprintf(l.out, "\nLoaded %d document chunks from %s\n", len(docs), dir)
	return docs, nil
}

// Parse parses in-memory content named name (used for the extension and metadata).
// source becomes the documents' Source.
func (l *Loader) Parse(ctx context.Context, name, source string, content []byte) ([]document.Document, error) {
	return l.parse(ctx, name, "", content, withSource(source))
}

type parseOption func(*document.Metadata)

func withSource(source string) parseOption {
	return func(m *document.Metadata) {
		if source != "" {
			m.Source = source
		}
	}
}

// parse dispatches on the extension of name. localPath, when set, is a file on disk
// that external tools can read directly; otherwise content is spilled to a temp file.
func (l *Loader) parse(ctx context.Context, name, localPath string, content []byte, opts ...parseOption) ([]document.Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	f, ok := lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	var (
		parts []part
		err   error
	)
	switch f {
	case formatText:
		parts, err = parseText(content)
	case formatDOCX:
		parts, err = parseDOCX(content)
	case formatCSV:
		parts, err = parseCSV(content)
	case formatMarkdown:
		parts, err = l.parseMarkdown(content)
	case formatPDF, formatImage:
		parts, err = l.withLocalFile(ctx, ext, localPath, content, func(path string) ([]part, error) {
			if f == formatPDF {
				return parsePDF(ctx, l.runner, path)
			}
			return parseImage(ctx, l.runner, path)
		})
	}
	if err != nil {
		return nil, err
	}

	base := document.Metadata{
		Source:   name,
		FileName: filepath.Base(name),
		FileType: strings.TrimPrefix(ext, "."),
	}
	for _, opt := range opts {
		opt(&base)
	}

	docs := make([]document.Document, 0, len(parts))
	for _, p := range parts {
		meta := base.Clone()
		if len(p.extra) > 0 {
			meta.Extra = p.extra
		}
		docs = append(docs, document.Document{Content: p.content, Metadata: meta})
	}
	return docs, nil
}

func (l *Loader) withLocalFile(ctx context.Context, ext, localPath string, content []byte, fn func(string) ([]part, error)) ([]part, error) {
	if localPath != "" {
		return fn(localPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "docqa-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	return fn(tmp.Name())
}

func (l *Loader) parseMarkdown(content []byte) ([]part, error) {
	title, body := splitFrontMatter(content)

	sections, err := l.sectioner.Sections(body)
	if err != nil {
		return nil, err
	}

	parts := make([]part, 0, len(sections))
	for _, s := range sections {
		extra := map[string]string{}
		if s.HeaderPath != "" {
			extra["header_path"] = s.HeaderPath
		}
		if title != "" {
			extra["title"] = title
		}
		parts = append(parts, part{content: s.Content, extra: extra})
	}
	return parts, nil
}

// RemoteFile is one file fetched from a remote source.
type RemoteFile struct {
	Path    string
	URL     string
	Content []byte
}

// RemoteSource lists and fetches files from somewhere other than the local disk.
type RemoteSource interface {
	ListFiles(ctx context.Context) ([]string, error)
	FetchFile(ctx context.Context, path string) (*RemoteFile, error)
}

// LoadRemote loads every supported file listed by src. Fetch and parse failures are
// logged and skipped; a listing failure is returned.
func (l *Loader) LoadRemote(ctx context.Context, src RemoteSource) ([]document.Document, error) {
	paths, err := src.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote files: %w", err)
	}

	var docs []document.Document
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !SupportedPath(p) {
			continue
		}

		fmt.Fprintf(l.out, "Loading: %s\n", p)
		file, err := src.FetchFile(ctx, p)
		if err != nil {
			l.logger.Warn("failed to fetch remote file", "path", p, "error", err)
			continue
		}

		parsed, err := l.Parse(ctx, file.Path, file.URL, file.Content)
		if err != nil {
			l.logger.Warn("failed to load remote file", "path", p, "error", err)
			continue
		}
		docs = append(docs, parsed...)
	}

	fmt.Fprintf(l.out, "\nLoaded %d document chunks\n", len(docs))
	return docs, nil
}
