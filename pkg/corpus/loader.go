package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// extensions lists the file extensions recognized as corpus documents.
var extensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// IsCorpusFile returns true if the path has a recognized document extension.
// The check is case-insensitive. Watch mode uses this to filter filesystem
// events.
func IsCorpusFile(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

// LoadDir walks root and loads every .txt and .md file into a Document.
// Hidden files and directories (dot-prefixed) are skipped, which keeps a
// .folio/ directory inside the corpus from being ingested. Documents are
// returned in lexical path order.
func LoadDir(root string) ([]Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", root)
	}

	var docs []Document
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if strings.HasPrefix(d.Name(), ".") && p != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !IsCorpusFile(p) {
			return nil
		}

		doc, err := LoadFile(root, p)
		if err != nil {
			return err
		}
		docs = append(docs, doc)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// LoadFile loads a single file under root into a Document. The document's
// source path is derived relative to root.
func LoadFile(root, path string) (Document, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Document{}, fmt.Errorf("resolving %s against corpus root: %w", path, err)
	}
	if strings.HasPrefix(rel, "..") {
		return Document{}, fmt.Errorf("file %s is outside corpus root %s", path, root)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return NewDocument(filepath.ToSlash(rel), string(data)), nil
}
