package testutils

import "github.com/foliodocs/folio/pkg/vector"

// NewTestEntry creates a simple index entry for testing
func NewTestEntry(docID string, ordinal int, embedding []float32) vector.Entry {
	return vector.Entry{
		DocumentID: docID,
		Ordinal:    ordinal,
		Source:     docID + ".md",
		Text:       "chunk text",
		Context:    "chunk context",
		Embedding:  embedding,
	}
}
