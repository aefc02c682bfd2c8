package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is the text between one H1/H2 heading and the next.
type Section struct {
	Index      int    // Position in document (0, 1, 2...)
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Content    string // Section text WITH header path prepended
	RawContent string // Section text as written
}

// Sectioner splits markdown documents at header boundaries while preserving context.
type Sectioner struct {
	parser goldmark.Markdown
}

// NewSectioner creates a sectioner backed by a goldmark parser.
func NewSectioner() *Sectioner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Sectioner{parser: md}
}

type heading struct {
	path []string
	node ast.Node
}

// Sections splits markdown at H1 and H2 boundaries. Sections do not overlap: an H1 section
// ends where its first H2 begins. Text before the first heading becomes a section with an
// empty header path. Sections with no text are dropped.
func (s *Sectioner) Sections(source []byte) ([]Section, error) {
	doc := s.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var headings []heading
	flatten(doc, tree.Items, nil, &headings)

	if len(headings) == 0 {
		raw := strings.TrimSpace(string(source))
		if raw == "" {
			return nil, nil
		}
		return []Section{{Index: 0, Content: raw, RawContent: raw}}, nil
	}

	var sections []Section
	add := func(path []string, raw string) {
		if raw == "" {
			return
		}
		headerPath := formatHeaderPath(path)
		content := raw
		if headerPath != "" {
			content = fmt.Sprintf("%s\n\n%s", headerPath, raw)
		}
		sections = append(sections, Section{
			Index:      len(sections),
			HeaderPath: headerPath,
			Content:    content,
			RawContent: raw,
		})
	}

	firstStart := lineStart(source, headings[0].node.Lines().At(0).Start)
	add(nil, strings.TrimSpace(string(source[:firstStart])))

	for i, h := range headings {
		start := h.node.Lines().At(0).Start
		end := len(source)
		if i+1 < len(headings) {
			end = lineStart(source, headings[i+1].node.Lines().At(0).Start)
		}
		add(h.path, extractContent(source, start, end))
	}

	return sections, nil
}

// flatten walks TOC items depth-first, which is document order.
func flatten(doc ast.Node, items toc.Items, ancestors []string, out *[]heading) {
	for _, item := range items {
		path := append(append([]string(nil), ancestors...), string(item.Title))

		if node := findHeaderByID(doc, string(item.ID)); node != nil && node.Lines().Len() > 0 {
			*out = append(*out, heading{path: path, node: node})
		}

		if len(item.Items) > 0 {
			flatten(doc, item.Items, path, out)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment))
	}
	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok {
				if b, isBytes := headingID.([]byte); isBytes && string(b) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lineStart returns the offset of the beginning of the line containing pos.
// Heading segments start after the "#" markers, so cuts are moved back to the line start.
func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// extractContent returns the trimmed text in source[start:end].
func extractContent(source []byte, start, end int) string {
	if start >= end {
		return ""
	}
	return strings.TrimSpace(string(source[start:end]))
}
