package domain

// Chunk is a bounded contiguous span of a document's text, the unit of
// embedding and retrieval. A chunk is immutable once created; its identity is
// (SourcePath, Page, Index).
type Chunk struct {
	SourcePath string
	// Page is the 1-based page the chunk came from for paged documents
	// (PDF), 0 for single-body documents.
	Page int
	// Index is the 0-based split position within the page or document body.
	Index    int
	Text     string
	Metadata map[string]string
}

// Payload is the fixed schema stored alongside every vector. Payload.Text
// must reproduce the exact chunk text that was embedded; retrieval rebuilds
// chunks from it.
type Payload struct {
	Text       string            `json:"text"`
	SourcePath string            `json:"source_path"`
	Page       int               `json:"page"`
	ChunkIndex int               `json:"chunk_index"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Chunk rebuilds the chunk a payload was created from.
func (p Payload) Chunk() Chunk {
	return Chunk{
		SourcePath: p.SourcePath,
		Page:       p.Page,
		Index:      p.ChunkIndex,
		Text:       p.Text,
		Metadata:   p.Metadata,
	}
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Fingerprint is the persisted signature used to detect file changes across
// ingestion runs.
type Fingerprint struct {
	Path    string `json:"path"`
	ModTime int64  `json:"mod_time"`
	Hash    string `json:"hash"`
}
