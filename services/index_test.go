package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"traffic-safety-chatbot/models"
)

// fakeDocumentStore serves an in-memory document set.
type fakeDocumentStore struct {
	docs []models.StoredDocument
	err  error
}

func (f *fakeDocumentStore) ListDocuments(ctx context.Context) ([]models.StoredDocument, error) {
	return f.docs, f.err
}

// fakeExtractor maps paths to canned text, or a malformed error.
type fakeExtractor struct {
	texts     map[string]string
	malformed map[string]bool
}

func (f *fakeExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if f.malformed[path] {
		return "", &MalformedDocumentError{Name: path, Err: errors.New("garbled")}
	}
	return f.texts[path], nil
}

func newTestIndexManager(store DocumentStore, extractor Extractor, client EmbeddingClient) *IndexManager {
	return NewIndexManager(
		store,
		extractor,
		NewChunkingService(500),
		newTestEmbedder(client),
		nil,
	)
}

func TestRebuildPublishesReadyIndex(t *testing.T) {
	store := &fakeDocumentStore{docs: []models.StoredDocument{
		{Name: "rules.txt", Path: "rules.txt"},
	}}
	extractor := &fakeExtractor{texts: map[string]string{
		"rules.txt": strings.Repeat("a", 1200),
	}}
	im := newTestIndexManager(store, extractor, &fakeEmbeddingClient{})

	result, err := im.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild error: %v", err)
	}

	if !result.Ready {
		t.Fatal("expected ready result")
	}
	if result.ChunkCount != 3 {
		t.Fatalf("expected 3 chunks, got %d", result.ChunkCount)
	}

	idx := im.Current()
	if !idx.Ready {
		t.Fatal("published index not ready")
	}
	if len(idx.Chunks) != len(idx.Vectors) {
		t.Fatalf("chunk/vector misalignment: %d vs %d", len(idx.Chunks), len(idx.Vectors))
	}
}

func TestRebuildZeroChunksKeepsPriorIndex(t *testing.T) {
	store := &fakeDocumentStore{docs: []models.StoredDocument{
		{Name: "rules.txt", Path: "rules.txt"},
	}}
	extractor := &fakeExtractor{texts: map[string]string{
		"rules.txt": "an toàn giao thông",
	}}
	im := newTestIndexManager(store, extractor, &fakeEmbeddingClient{})

	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild error: %v", err)
	}
	prior := im.Current()

	// Document set becomes empty; the prior snapshot must stay visible.
	store.docs = nil
	result, err := im.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("zero-chunk rebuild must not error: %v", err)
	}
	if result.Ready || result.ChunkCount != 0 {
		t.Fatalf("expected not-ready empty result, got %+v", result)
	}
	if im.Current() != prior {
		t.Fatal("zero-chunk rebuild replaced the prior index")
	}
}

func TestRebuildEmbedFailureKeepsPriorIndex(t *testing.T) {
	store := &fakeDocumentStore{docs: []models.StoredDocument{
		{Name: "rules.txt", Path: "rules.txt"},
	}}
	extractor := &fakeExtractor{texts: map[string]string{
		"rules.txt": "an toàn giao thông",
	}}

	client := &fakeEmbeddingClient{}
	im := newTestIndexManager(store, extractor, client)

	if _, err := im.Rebuild(context.Background()); err != nil {
		t.Fatalf("first rebuild error: %v", err)
	}
	prior := im.Current()

	// Every call fails from now on; the rebuild aborts as a build failure.
	client.failFirst = 1 << 30
	_, err := im.Rebuild(context.Background())

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %v", err)
	}
	if buildErr.Stage != "embed" {
		t.Fatalf("expected embed stage, got %q", buildErr.Stage)
	}
	if im.Current() != prior {
		t.Fatal("failed rebuild replaced the prior index")
	}

	// A later successful rebuild still works; the operation is idempotent.
	client.failFirst = 0
	client.calls = 0
	result, err := im.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("re-triggered rebuild error: %v", err)
	}
	if !result.Ready {
		t.Fatal("re-triggered rebuild not ready")
	}
}

func TestRebuildSkipsMalformedDocuments(t *testing.T) {
	store := &fakeDocumentStore{docs: []models.StoredDocument{
		{Name: "good.txt", Path: "good.txt"},
		{Name: "broken.pdf", Path: "broken.pdf"},
	}}
	extractor := &fakeExtractor{
		texts:     map[string]string{"good.txt": "biển báo giao thông"},
		malformed: map[string]bool{"broken.pdf": true},
	}
	im := newTestIndexManager(store, extractor, &fakeEmbeddingClient{})

	result, err := im.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild error: %v", err)
	}

	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped document, got %d", result.Skipped)
	}
	if !result.Ready {
		t.Fatal("rebuild should succeed with remaining documents")
	}
	for _, chunk := range im.Current().Chunks {
		if chunk.SourceID == "broken.pdf" {
			t.Fatal("malformed document leaked into the index")
		}
	}
}

func TestNewIndexManagerStartsNotReady(t *testing.T) {
	im := newTestIndexManager(&fakeDocumentStore{}, &fakeExtractor{}, &fakeEmbeddingClient{})

	idx := im.Current()
	if idx == nil {
		t.Fatal("initial index is nil")
	}
	if idx.Ready || idx.Size() != 0 {
		t.Fatalf("initial index should be empty and not ready, got ready=%v size=%d", idx.Ready, idx.Size())
	}
}
