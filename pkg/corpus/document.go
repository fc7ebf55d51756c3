// Package corpus loads a directory of normalized text documents for ingestion.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// idLen is the length of the hex-encoded document ID.
const idLen = 16

// Document is a single corpus document ready for chunking.
type Document struct {
	// ID is the stable identifier derived from the source-relative path.
	ID string

	// Source is the slash-separated path of the document relative to the
	// corpus root. Citations refer to documents by this path.
	Source string

	// Text is the normalized document content (LF line endings).
	Text string

	// Hash is the SHA-256 of the normalized content, hex-encoded. Two
	// documents with the same hash carry identical text.
	Hash string
}

// NewDocument builds a Document from a source-relative path and raw content.
// Line endings are normalized to LF before hashing so the same content hashes
// identically regardless of the platform that produced the file.
func NewDocument(source, text string) Document {
	source = path.Clean(strings.ReplaceAll(source, "\\", "/"))
	text = normalize(text)

	return Document{
		ID:     DeriveID(source),
		Source: source,
		Text:   text,
		Hash:   hashText(text),
	}
}

// DeriveID returns the stable document ID for a source-relative path.
func DeriveID(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:idLen]
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
