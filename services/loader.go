package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"traffic-safety-chatbot/models"
)

// DocumentStore enumerates the flat set of source documents to index.
type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]models.StoredDocument, error)
}

// DirectoryStore is a DocumentStore over a single directory, filtered by
// supported file extensions.
type DirectoryStore struct {
	dir        string
	extensions map[string]bool
}

// NewDirectoryStore creates a store over dir. With no extensions given it
// accepts the formats the extractor supports.
func NewDirectoryStore(dir string, extensions ...string) *DirectoryStore {
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md"}
	}

	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}

	return &DirectoryStore{dir: dir, extensions: extMap}
}

// ListDocuments returns the supported files in the directory, sorted by
// name so rebuilds see documents in a stable order.
func (ds *DirectoryStore) ListDocuments(ctx context.Context) ([]models.StoredDocument, error) {
	entries, err := os.ReadDir(ds.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read document directory: %w", err)
	}

	var docs []models.StoredDocument
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !ds.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		docs = append(docs, models.StoredDocument{
			Name: entry.Name(),
			Path: filepath.Join(ds.dir, entry.Name()),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Supports reports whether the store accepts files with the given name.
func (ds *DirectoryStore) Supports(name string) bool {
	return ds.extensions[strings.ToLower(filepath.Ext(name))]
}
