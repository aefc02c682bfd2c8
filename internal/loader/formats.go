package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	pdfTool = "pdftotext"
	ocrTool = "tesseract"
)

// part is one parsed piece of a file before source metadata is attached.
type part struct {
	content string
	extra   map[string]string
}

func parseText(content []byte) ([]part, error) {
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}
	text := strings.TrimPrefix(string(content), "\uFEFF")
	return []part{{content: text}}, nil
}

// parsePDF runs pdftotext and emits one part per non-empty page.
func parsePDF(ctx context.Context, runner CommandRunner, path string) ([]part, error) {
	out, err := runner.Run(ctx, pdfTool, "-layout", path, "-")
	if err != nil {
		return nil, err
	}

	var parts []part
	for i, page := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		parts = append(parts, part{
			content: page,
			extra:   map[string]string{"page": strconv.Itoa(i + 1)},
		})
	}
	return parts, nil
}

// parseImage extracts text with tesseract. Images with no recognisable text yield nothing.
func parseImage(ctx context.Context, runner CommandRunner, path string) ([]part, error) {
	out, err := runner.Run(ctx, ocrTool, path, "stdout")
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, nil
	}
	return []part{{content: text}}, nil
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDOCX reads word/document.xml from an Office Open XML container.
// Legacy binary .doc files are not zip archives and fail here.
func parseDOCX(content []byte) ([]part, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not an Office Open XML document: %w", err)
	}

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}

		var doc documentXML
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		var b strings.Builder
		for i, para := range doc.Body.Paragraphs {
			if i > 0 {
				b.WriteString("\n")
			}
			for _, r := range para.Runs {
				for _, t := range r.Text {
					b.WriteString(t.Content)
				}
			}
		}

		text := strings.TrimSpace(b.String())
		if text == "" {
			return nil, nil
		}
		return []part{{content: text}}, nil
	}

	return nil, errors.New("word/document.xml not found")
}

// parseCSV emits one part per record, rendered as "header: value" lines.
func parseCSV(content []byte) ([]part, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\uFEFF"))))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var parts []part
	for row := 0; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		lines := make([]string, 0, len(header))
		for i, h := range header {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			lines = append(lines, fmt.Sprintf("%s: %s", strings.TrimSpace(h), strings.TrimSpace(value)))
		}

		parts = append(parts, part{
			content: strings.Join(lines, "\n"),
			extra:   map[string]string{"row": strconv.Itoa(row)},
		})
	}
	return parts, nil
}

type frontMatter struct {
	Title string `yaml:"title"`
}

// splitFrontMatter strips a leading YAML front matter block and returns its title.
// Malformed front matter is left in the body.
func splitFrontMatter(content []byte) (title string, body []byte) {
	text := strings.TrimPrefix(string(content), "\uFEFF")
	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return "", content
	}

	rest := text[strings.Index(text, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return "", content
	}

	after := rest[end+len("\n---"):]
	if i := strings.Index(after, "\n"); i >= 0 {
		after = after[i+1:]
	} else {
		after = ""
	}
	return strings.TrimSpace(fm.Title), []byte(after)
}
