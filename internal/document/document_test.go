package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadata_SourceOrUnknown(t *testing.T) {
	assert.Equal(t, UnknownSource, Metadata{}.SourceOrUnknown())
	assert.Equal(t, "docs/a.txt", Metadata{Source: "docs/a.txt"}.SourceOrUnknown())
}

func TestMetadata_WithDoesNotMutateOriginal(t *testing.T) {
	orig := Metadata{Source: "a.csv", Extra: map[string]string{"row": "1"}}

	derived := orig.With("chunk_index", "0")

	assert.Equal(t, "0", derived.Get("chunk_index"))
	assert.Equal(t, "1", derived.Get("row"))
	assert.Empty(t, orig.Get("chunk_index"), "original extra map must be untouched")
}

func TestMetadata_CloneNilExtra(t *testing.T) {
	m := Metadata{Source: "a.txt"}
	c := m.Clone()
	assert.Nil(t, c.Extra)
	assert.Equal(t, m, c)
}
