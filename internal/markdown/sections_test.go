package markdown

import (
	"strings"
	"testing"
)

// TestSections_BasicHeaders tests splitting with H1 and multiple H2s.
func TestSections_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}

	expectedPaths := []string{
		"# Getting Started",
		"# Getting Started > ## Installation",
		"# Getting Started > ## Configuration",
	}
	for i, want := range expectedPaths {
		if sections[i].Index != i {
			t.Errorf("Section %d index: got %d", i, sections[i].Index)
		}
		if sections[i].HeaderPath != want {
			t.Errorf("Section %d HeaderPath: expected %q, got %q", i, want, sections[i].HeaderPath)
		}
	}

	if !strings.Contains(sections[0].RawContent, "Introduction text here") {
		t.Errorf("Section 0 missing expected content")
	}
	if strings.Contains(sections[0].RawContent, "Install steps here") {
		t.Errorf("H1 section must stop at the first H2")
	}
	if strings.HasSuffix(sections[0].RawContent, "#") {
		t.Errorf("Section 0 leaks the next heading marker: %q", sections[0].RawContent)
	}
	if !strings.Contains(sections[2].RawContent, "Config details here") {
		t.Errorf("Section 2 missing expected content")
	}
}

// TestSections_NestedContent tests that H3 and code blocks stay inside their H2.
func TestSections_NestedContent(t *testing.T) {
	input := `# API Reference

Overview of the API.

## Methods

Available methods:

` + "```go" + `
func DoSomething() error {
    return nil
}
` + "```" + `

### Details

- List item 1
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}

	methods := sections[1].RawContent
	for _, want := range []string{"func DoSomething()", "### Details", "List item 1"} {
		if !strings.Contains(methods, want) {
			t.Errorf("Methods section missing %q", want)
		}
	}
}

// TestSections_Preamble tests text before the first heading.
func TestSections_Preamble(t *testing.T) {
	input := `Some front matter text.

# Title

Body.
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if sections[0].HeaderPath != "" || sections[0].RawContent != "Some front matter text." {
		t.Errorf("Unexpected preamble section: %+v", sections[0])
	}
	if sections[1].HeaderPath != "# Title" {
		t.Errorf("Unexpected header path %q", sections[1].HeaderPath)
	}
}

// TestSections_NoHeaders tests a document with no headers.
func TestSections_NoHeaders(t *testing.T) {
	input := "This is a document with no headers.\n\nJust plain text content.\n"

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].HeaderPath != "" {
		t.Errorf("Expected empty HeaderPath, got %q", sections[0].HeaderPath)
	}
	if sections[0].Content != sections[0].RawContent {
		t.Errorf("Content without headers should equal RawContent")
	}
}

func TestSections_Empty(t *testing.T) {
	sections, err := NewSectioner().Sections([]byte("  \n\n"))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}
	if len(sections) != 0 {
		t.Errorf("Expected no sections, got %d", len(sections))
	}
}

// TestSections_PrependedContent verifies the header path is prepended to Content.
func TestSections_PrependedContent(t *testing.T) {
	input := `# Title

Some content.

## Section

Section content.
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if !strings.HasPrefix(sections[0].Content, "# Title\n\n") {
		t.Errorf("Section 0 Content doesn't start with header path")
	}
	if !strings.HasPrefix(sections[1].Content, "# Title > ## Section\n\n") {
		t.Errorf("Section 1 Content doesn't start with expected header path: %q", sections[1].Content)
	}
	if strings.HasPrefix(sections[1].RawContent, "# Title") {
		t.Errorf("RawContent should not have prepended header")
	}
}

func TestSections_MultipleH1s(t *testing.T) {
	input := `# First Section

First content.

## First Subsection

First subsection content.

# Second Section

Second content.
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	expectedPaths := []string{
		"# First Section",
		"# First Section > ## First Subsection",
		"# Second Section",
	}
	if len(sections) != len(expectedPaths) {
		t.Fatalf("Expected %d sections, got %d", len(expectedPaths), len(sections))
	}
	for i, want := range expectedPaths {
		if sections[i].HeaderPath != want {
			t.Errorf("Section %d: expected path %q, got %q", i, want, sections[i].HeaderPath)
		}
	}
	if strings.Contains(sections[1].RawContent, "Second content") {
		t.Errorf("Subsection leaks into the next H1")
	}
}
