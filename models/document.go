package models

import "time"

// StoredDocument describes one entry of the document store: a named file
// that can be read and text-extracted. The store itself is a flat set.
type StoredDocument struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ContentChunk is the atomic unit of retrieval: a bounded span of one
// document's text with enough provenance to cite the source in answers.
type ContentChunk struct {
	ChunkID  string `json:"chunk_id"`
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
	Order    int    `json:"order"`
}

// BuildIndexResult reports the outcome of an index rebuild to callers.
// Ready is false both for an empty document set and for a failed build;
// the two cases are distinguished by the error returned alongside.
type BuildIndexResult struct {
	Ready      bool      `json:"ready"`
	ChunkCount int       `json:"chunk_count"`
	Documents  int       `json:"documents"`
	Skipped    int       `json:"skipped"`
	BuiltAt    time.Time `json:"built_at"`
}
