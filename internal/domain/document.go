package domain

// Document is the extracted text of a single source file. It is consumed by
// the ingestion pipeline and discarded after indexing.
type Document struct {
	Source  string
	Content string
}

// Chunk is a bounded contiguous segment of a document's text, the unit of
// embedding and indexing. Consecutive chunks from the same document overlap
// by the configured overlap amount.
type Chunk struct {
	Source  string
	Index   int
	Content string
}

// IngestionReport summarizes a completed ingestion run.
type IngestionReport struct {
	Source     string
	ChunkCount int
}
