package services

import (
	"strings"

	"traffic-safety-chatbot/models"

	"github.com/google/uuid"
)

// ChunkingService splits extracted document text into fixed-size spans.
type ChunkingService struct {
	chunkSize int
}

// NewChunkingService creates a chunking service. Sizes are measured in
// runes so multi-byte text (the corpus is Vietnamese) is never split
// mid-character.
func NewChunkingService(chunkSize int) *ChunkingService {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &ChunkingService{chunkSize: chunkSize}
}

// ChunkText splits text into consecutive, non-overlapping spans of at most
// chunkSize runes; the final span may be shorter. Spans that are empty
// after trimming whitespace are discarded. Empty input yields zero chunks.
// The split positions are deterministic for a given text and size.
func (cs *ChunkingService) ChunkText(sourceID, text string) []models.ContentChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []models.ContentChunk
	for start := 0; start < len(runes); start += cs.chunkSize {
		end := start + cs.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		span := string(runes[start:end])
		if strings.TrimSpace(span) == "" {
			continue
		}

		chunks = append(chunks, models.ContentChunk{
			ChunkID:  uuid.NewString(),
			SourceID: sourceID,
			Text:     span,
			Order:    len(chunks),
		})
	}

	return chunks
}

// Size returns the configured chunk size in runes.
func (cs *ChunkingService) Size() int {
	return cs.chunkSize
}
