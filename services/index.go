package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"traffic-safety-chatbot/internal/telemetry"
	"traffic-safety-chatbot/models"
)

// Extractor turns a stored document into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// SearchIndex is one immutable snapshot of the retrievable corpus:
// positionally aligned chunk and vector slices plus a readiness flag.
// Snapshots are never mutated after publication.
type SearchIndex struct {
	Chunks  []models.ContentChunk
	Vectors [][]float32
	Ready   bool
	BuiltAt time.Time
}

// Size returns the number of indexed chunks.
func (idx *SearchIndex) Size() int {
	return len(idx.Chunks)
}

// IndexManager owns the published index snapshot. Rebuilds are serialized
// and build a complete new snapshot off to the side; publication is a
// single atomic pointer swap, so concurrent readers always see a complete,
// consistent index.
type IndexManager struct {
	store     DocumentStore
	extractor Extractor
	chunker   *ChunkingService
	embedder  *EmbeddingService
	metrics   *telemetry.Metrics

	rebuildMu sync.Mutex
	current   atomic.Pointer[SearchIndex]
}

// NewIndexManager creates an index manager. The initial index is empty and
// not ready; call Rebuild to populate it. metrics may be nil.
func NewIndexManager(store DocumentStore, extractor Extractor, chunker *ChunkingService, embedder *EmbeddingService, metrics *telemetry.Metrics) *IndexManager {
	im := &IndexManager{
		store:     store,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		metrics:   metrics,
	}
	im.current.Store(&SearchIndex{})
	return im
}

// Current returns the published index snapshot. Never nil.
func (im *IndexManager) Current() *SearchIndex {
	return im.current.Load()
}

// Rebuild re-indexes the whole document set: enumerate, extract, chunk,
// embed, then publish. A malformed document is skipped with a warning; an
// embedding failure aborts the build. In both failure shapes and in the
// zero-chunk case the previously published index stays untouched, so the
// operation is idempotent and safe to re-trigger.
func (im *IndexManager) Rebuild(ctx context.Context) (models.BuildIndexResult, error) {
	im.rebuildMu.Lock()
	defer im.rebuildMu.Unlock()

	start := time.Now()

	docs, err := im.store.ListDocuments(ctx)
	if err != nil {
		im.recordRebuild(start, "failed")
		return models.BuildIndexResult{}, &BuildError{Stage: "list", Err: err}
	}

	var (
		chunks  []models.ContentChunk
		skipped int
	)

	for _, doc := range docs {
		text, err := im.extractor.ExtractText(ctx, doc.Path)
		if err != nil {
			var malformed *MalformedDocumentError
			if errors.As(err, &malformed) {
				log.Printf("Warning: skipping document %s: %v", doc.Name, err)
				skipped++
				continue
			}
			im.recordRebuild(start, "failed")
			return models.BuildIndexResult{}, &BuildError{Stage: "extract", Err: err}
		}

		docChunks := im.chunker.ChunkText(doc.Name, text)
		chunks = append(chunks, docChunks...)
	}

	result := models.BuildIndexResult{
		ChunkCount: len(chunks),
		Documents:  len(docs) - skipped,
		Skipped:    skipped,
		BuiltAt:    time.Now(),
	}

	if len(chunks) == 0 {
		// Nothing to index; report it and keep the prior snapshot.
		log.Printf("Index rebuild produced zero chunks (%d documents, %d skipped)", len(docs), skipped)
		im.recordRebuild(start, "empty")
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := im.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		im.recordRebuild(start, "failed")
		return models.BuildIndexResult{}, &BuildError{Stage: "embed", Err: err}
	}

	im.current.Store(&SearchIndex{
		Chunks:  chunks,
		Vectors: vectors,
		Ready:   true,
		BuiltAt: result.BuiltAt,
	})

	result.Ready = true
	log.Printf("Index rebuilt: %d chunks from %d documents (%d skipped) in %s",
		len(chunks), result.Documents, skipped, time.Since(start).Round(time.Millisecond))
	im.recordRebuild(start, "ready")

	return result, nil
}

func (im *IndexManager) recordRebuild(start time.Time, status string) {
	if im.metrics != nil {
		im.metrics.RecordRebuild(time.Since(start).Seconds(), status)
	}
}
