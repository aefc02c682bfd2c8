package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	calls  [][]string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, append([]string{name}, args...))
	return m.output, m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o600))
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var xmlBody strings.Builder
	xmlBody.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	xmlBody.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		xmlBody.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	xmlBody.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(xmlBody.String()))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", "txt", ".PDF", ".docx", ".doc", ".jpg", ".JPEG", ".png", ".gif", ".bmp", ".md", ".markdown", ".csv"} {
		assert.True(t, Supported(ext), ext)
	}
	for _, ext := range []string{"", ".xlsx", ".html", ".go"} {
		assert.False(t, Supported(ext), ext)
	}
	assert.Len(t, SupportedExtensions(), 12)
	assert.True(t, SupportedPath("a/b/Report.PDF"))
}

func TestLoadDocument_Text(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, []byte("Paris is the capital of France."))

	docs := New(WithLogger(quietLogger())).LoadDocument(context.Background(), path)

	require.Len(t, docs, 1)
	assert.Equal(t, "Paris is the capital of France.", docs[0].Content)
	assert.Equal(t, path, docs[0].Metadata.Source)
	assert.Equal(t, "a.txt", docs[0].Metadata.FileName)
	assert.Equal(t, "txt", docs[0].Metadata.FileType)
}

func TestLoadDocument_UppercaseExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "NOTES.TXT")
	writeFile(t, path, []byte("hello"))

	docs := New(WithLogger(quietLogger())).LoadDocument(context.Background(), path)
	require.Len(t, docs, 1)
	assert.Equal(t, "txt", docs[0].Metadata.FileType)
}

func TestLoadDocument_UnsupportedAndBroken(t *testing.T) {
	dir := t.TempDir()
	l := New(WithLogger(quietLogger()))

	xlsx := filepath.Join(dir, "sheet.xlsx")
	writeFile(t, xlsx, []byte("whatever"))
	assert.Empty(t, l.LoadDocument(context.Background(), xlsx))

	legacyDoc := filepath.Join(dir, "old.doc")
	writeFile(t, legacyDoc, []byte{0xD0, 0xCF, 0x11, 0xE0})
	assert.Empty(t, l.LoadDocument(context.Background(), legacyDoc))

	badText := filepath.Join(dir, "bad.txt")
	writeFile(t, badText, []byte{0xff, 0xfe, 0xfd})
	assert.Empty(t, l.LoadDocument(context.Background(), badText))
}

func TestLoadDocument_PDFPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	writeFile(t, path, []byte("%PDF-1.4"))

	runner := &mockRunner{output: []byte("Page one text\fPage two text\f\f")}
	docs := New(WithRunner(runner), WithLogger(quietLogger())).LoadDocument(context.Background(), path)

	require.Len(t, docs, 2)
	assert.Equal(t, "Page one text", docs[0].Content)
	assert.Equal(t, "1", docs[0].Metadata.Get("page"))
	assert.Equal(t, "2", docs[1].Metadata.Get("page"))
	assert.Equal(t, "pdf", docs[1].Metadata.FileType)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"pdftotext", "-layout", path, "-"}, runner.calls[0])
}

func TestLoadDocument_PDFToolMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	writeFile(t, path, []byte("%PDF-1.4"))

	runner := &mockRunner{err: ErrToolNotFound}
	docs := New(WithRunner(runner), WithLogger(quietLogger())).LoadDocument(context.Background(), path)
	assert.Empty(t, docs)
}

func TestLoadDocument_ImageOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.PNG")
	writeFile(t, path, []byte{0x89, 'P', 'N', 'G'})

	runner := &mockRunner{output: []byte("  Invoice total: 42 EUR\n")}
	docs := New(WithRunner(runner), WithLogger(quietLogger())).LoadDocument(context.Background(), path)

	require.Len(t, docs, 1)
	assert.Equal(t, "Invoice total: 42 EUR", docs[0].Content)
	assert.Equal(t, "png", docs[0].Metadata.FileType)
	assert.Equal(t, []string{"tesseract", path, "stdout"}, runner.calls[0])
}

func TestLoadDocument_DOCX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memo.docx")
	writeFile(t, path, buildDOCX(t, "First paragraph.", "Second paragraph."))

	docs := New(WithLogger(quietLogger())).LoadDocument(context.Background(), path)

	require.Len(t, docs, 1)
	assert.Equal(t, "First paragraph.\nSecond paragraph.", docs[0].Content)
	assert.Equal(t, "docx", docs[0].Metadata.FileType)
}

func TestLoadDocument_CSVRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	writeFile(t, path, []byte("name, city\nAda, London\nLinus,Helsinki\n"))

	docs := New(WithLogger(quietLogger())).LoadDocument(context.Background(), path)

	require.Len(t, docs, 2)
	assert.Equal(t, "name: Ada\ncity: London", docs[0].Content)
	assert.Equal(t, "0", docs[0].Metadata.Get("row"))
	assert.Equal(t, "name: Linus\ncity: Helsinki", docs[1].Content)
	assert.Equal(t, "1", docs[1].Metadata.Get("row"))
}

func TestLoadDocument_MarkdownSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	writeFile(t, path, []byte("---\ntitle: User Guide\n---\n# Setup\n\nInstall it.\n\n## Config\n\nSet the key.\n"))

	docs := New(WithLogger(quietLogger())).LoadDocument(context.Background(), path)

	require.Len(t, docs, 2)
	assert.Equal(t, "# Setup", docs[0].Metadata.Get("header_path"))
	assert.Equal(t, "# Setup > ## Config", docs[1].Metadata.Get("header_path"))
	assert.Contains(t, docs[1].Content, "Set the key.")
	assert.Equal(t, "User Guide", docs[0].Metadata.Get("title"))
	assert.NotContains(t, docs[0].Content, "title: User Guide")
	assert.Equal(t, "md", docs[0].Metadata.FileType)
}

func TestLoadFolder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("alpha"))
	writeFile(t, filepath.Join(dir, "sub", "b.md"), []byte("beta"))
	writeFile(t, filepath.Join(dir, "sub", "ignored.xlsx"), []byte("nope"))
	writeFile(t, filepath.Join(dir, ".git", "c.txt"), []byte("hidden"))

	var progress bytes.Buffer
	docs, err := New(WithLogger(quietLogger()), WithProgress(&progress)).LoadFolder(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	var sources []string
	for _, d := range docs {
		assert.NotEmpty(t, d.Metadata.Source)
		sources = append(sources, filepath.Base(d.Metadata.Source))
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.md"}, sources)
	assert.Contains(t, progress.String(), "Loading: a.txt")
	assert.Contains(t, progress.String(), "Loaded 2 document chunks from "+dir)
	assert.NotContains(t, progress.String(), "c.txt")
}

func TestLoadFolder_Missing(t *testing.T) {
	_, err := New(WithLogger(quietLogger())).LoadFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestLoadFolder_FileIsNotAFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, []byte("x"))

	_, err := New(WithLogger(quietLogger())).LoadFolder(context.Background(), path)
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestLoadFolder_Empty(t *testing.T) {
	docs, err := New(WithLogger(quietLogger())).LoadFolder(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadFolder_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("alpha"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithLogger(quietLogger())).LoadFolder(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_Unsupported(t *testing.T) {
	_, err := New().Parse(context.Background(), "x.xlsx", "", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParse_PDFFromBytesUsesTempFile(t *testing.T) {
	runner := &mockRunner{output: []byte("remote page")}
	docs, err := New(WithRunner(runner)).Parse(context.Background(), "docs/r.pdf", "https://example.com/r.pdf", []byte("%PDF"))
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "https://example.com/r.pdf", docs[0].Metadata.Source)
	assert.Equal(t, "r.pdf", docs[0].Metadata.FileName)
	tmpPath := runner.calls[0][2]
	assert.True(t, strings.HasSuffix(tmpPath, ".pdf"))
	_, statErr := os.Stat(tmpPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "temp file must be removed")
}

type fakeRemote struct {
	files   map[string]string
	order   []string
	failing string
}

func (f *fakeRemote) ListFiles(context.Context) ([]string, error) { return f.order, nil }

func (f *fakeRemote) FetchFile(_ context.Context, path string) (*RemoteFile, error) {
	if path == f.failing {
		return nil, errors.New("boom")
	}
	return &RemoteFile{Path: path, URL: "https://github.com/o/r/blob/main/" + path, Content: []byte(f.files[path])}, nil
}

func TestLoadRemote(t *testing.T) {
	src := &fakeRemote{
		files:   map[string]string{"README.md": "# Readme\n\nhello", "notes.txt": "notes", "bin.exe": "x"},
		order:   []string{"README.md", "bin.exe", "notes.txt", "gone.txt"},
		failing: "gone.txt",
	}

	docs, err := New(WithLogger(quietLogger())).LoadRemote(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "https://github.com/o/r/blob/main/README.md", docs[0].Metadata.Source)
	assert.Equal(t, "md", docs[0].Metadata.FileType)
	assert.Equal(t, "notes", docs[1].Content)
}

func TestMissingTools(t *testing.T) {
	onlyPDF := func(name string) (string, error) {
		if name == "pdftotext" {
			return "/usr/bin/pdftotext", nil
		}
		return "", errors.New("not found")
	}
	assert.Equal(t, []string{"tesseract"}, missingTools(onlyPDF))

	all := func(name string) (string, error) { return "/usr/bin/" + name, nil }
	assert.Empty(t, missingTools(all))
}
