package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"traffic-safety-chatbot/internal/telemetry"
	"traffic-safety-chatbot/models"
)

// NoDocumentsMessage is returned by Retrieve when no index is ready.
// It is user-visible degradation text, not an error.
const NoDocumentsMessage = "Chưa có tài liệu tham khảo nào được nạp vào hệ thống."

// chunkSeparator visibly delimits chunks in the assembled context block.
const chunkSeparator = "\n---\n"

// RetrievalService ranks indexed chunks against a query by cosine
// similarity and assembles the top results into a grounding context block.
type RetrievalService struct {
	index    *IndexManager
	embedder *EmbeddingService
	topK     int
	metrics  *telemetry.Metrics
}

// NewRetrievalService creates a retrieval service. topK defaults to 3 when
// not positive. metrics may be nil.
func NewRetrievalService(index *IndexManager, embedder *EmbeddingService, topK int, metrics *telemetry.Metrics) *RetrievalService {
	if topK <= 0 {
		topK = 3
	}
	return &RetrievalService{
		index:    index,
		embedder: embedder,
		topK:     topK,
		metrics:  metrics,
	}
}

// RetrieveChunks returns the k most similar chunks, highest score first,
// ties broken by original chunk order. Returns ErrIndexNotReady when no
// index has been built yet.
func (rs *RetrievalService) RetrieveChunks(ctx context.Context, query string, k int) ([]models.ContentChunk, error) {
	start := time.Now()

	snapshot := rs.index.Current()
	if !snapshot.Ready {
		rs.recordRetrieval(start, "not_ready")
		return nil, ErrIndexNotReady
	}

	if k <= 0 {
		k = rs.topK
	}
	if k > snapshot.Size() {
		k = snapshot.Size()
	}

	queryVector, err := rs.embedder.EmbedQuery(ctx, query)
	if err != nil {
		rs.recordRetrieval(start, "embed_failed")
		return nil, err
	}

	type scored struct {
		order int
		score float64
	}

	ranked := make([]scored, snapshot.Size())
	for i, vector := range snapshot.Vectors {
		ranked[i] = scored{order: i, score: CosineSimilarity(queryVector, vector)}
	}

	// Stable sort keeps original chunk order among equal scores. No
	// minimum-score cutoff: top-k is returned even when nothing is close.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	chunks := make([]models.ContentChunk, k)
	for i := 0; i < k; i++ {
		chunks[i] = snapshot.Chunks[ranked[i].order]
	}

	rs.recordRetrieval(start, "ok")
	return chunks, nil
}

// Retrieve returns the assembled, human-readable context block for a
// query, or NoDocumentsMessage when no index is ready. Embedding failure
// surfaces as ErrRetrievalUnavailable so callers can degrade to answering
// without grounding.
func (rs *RetrievalService) Retrieve(ctx context.Context, query string, k int) (string, error) {
	chunks, err := rs.RetrieveChunks(ctx, query, k)
	if err != nil {
		if errors.Is(err, ErrIndexNotReady) {
			return NoDocumentsMessage, nil
		}
		return "", err
	}

	return AssembleContext(chunks), nil
}

// AssembleContext concatenates chunks with a visible separator, each chunk
// still carrying its source provenance.
func AssembleContext(chunks []models.ContentChunk) string {
	if len(chunks) == 0 {
		return NoDocumentsMessage
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Nguồn: %s]\n%s", chunk.SourceID, strings.TrimSpace(chunk.Text))
	}
	return strings.Join(parts, chunkSeparator)
}

// CosineSimilarity returns dot(a,b)/(|a|*|b|) in [-1, 1]. A zero-norm
// vector yields 0 instead of a division error. Mismatched dimensions
// compare over the shorter prefix, which only happens if the embedding
// service misbehaves.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (rs *RetrievalService) recordRetrieval(start time.Time, status string) {
	if rs.metrics != nil {
		rs.metrics.RecordRetrieval(time.Since(start).Seconds(), status)
	}
}
