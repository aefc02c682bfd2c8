// Package document defines the chunk model shared by the loader, splitter, stores and retriever.
package document

import "maps"

// Document is a piece of text plus the metadata describing where it came from.
// Loaders produce whole files (or pages/rows/sections), the splitter produces bounded chunks.
type Document struct {
	Content  string
	Metadata Metadata
}

// Metadata describes the origin of a Document.
type Metadata struct {
	Source   string            // File path or URL the content was loaded from
	FileName string            // Base name: "notes.txt"
	FileType string            // Extension without the dot: "txt"
	Extra    map[string]string // Loader-specific fields: page, row, header_path, chunk_index...
}

// UnknownSource is reported for chunks whose source path was lost.
const UnknownSource = "Unknown"

// SourceOrUnknown returns the source path, or UnknownSource if it is empty.
func (m Metadata) SourceOrUnknown() string {
	if m.Source == "" {
		return UnknownSource
	}
	return m.Source
}

// Clone returns a deep copy so derived documents never share the Extra map.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Extra != nil {
		out.Extra = maps.Clone(m.Extra)
	}
	return out
}

// With returns a copy of the metadata with one extra field set.
func (m Metadata) With(key, value string) Metadata {
	out := m.Clone()
	if out.Extra == nil {
		out.Extra = make(map[string]string)
	}
	out.Extra[key] = value
	return out
}

// Get returns an extra field, or "" if missing.
func (m Metadata) Get(key string) string {
	return m.Extra[key]
}
