package domain

// IndexedRecord is a (vector, text, metadata) triple persisted in the vector
// index during ingestion.
type IndexedRecord struct {
	Source    string
	Content   string
	Embedding []float32
}

// RetrievedRecord is an indexed record returned from a similarity query,
// annotated with its similarity score.
type RetrievedRecord struct {
	Source  string
	Content string
	Score   float32
}

// RetrievalResult is the outcome of one retrieval query: the ranked records
// plus a rendered evidence block for language-model consumption.
type RetrievalResult struct {
	Evidence string
	Records  []RetrievedRecord
}
