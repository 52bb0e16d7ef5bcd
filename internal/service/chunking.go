package service

import (
	"fmt"

	"github.com/docchat-ai/docchat/internal/domain"
)

// ChunkConfig controls the fixed-window splitter.
type ChunkConfig struct {
	// MaxChars is the maximum chunk length in characters.
	MaxChars int
	// Overlap is the number of characters shared between consecutive chunks.
	Overlap int
}

// DefaultChunkConfig mirrors the ingestion defaults used in production.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{MaxChars: 1000, Overlap: 200}
}

// Validate returns an INVALID_CONFIGURATION error when the window
// parameters cannot produce forward progress.
func (c ChunkConfig) Validate() error {
	if c.MaxChars <= 0 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInvalidConfig,
			fmt.Sprintf("chunk max chars must be positive, got %d", c.MaxChars), domain.ErrInvalidChunkConfig)
	}
	if c.Overlap < 0 {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInvalidConfig,
			fmt.Sprintf("chunk overlap must not be negative, got %d", c.Overlap), domain.ErrInvalidChunkConfig)
	}
	if c.Overlap >= c.MaxChars {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInvalidConfig,
			fmt.Sprintf("chunk overlap %d must be smaller than max chars %d", c.Overlap, c.MaxChars), domain.ErrInvalidChunkConfig)
	}
	return nil
}

// SplitText walks text in windows of MaxChars characters, advancing the
// window start by MaxChars-Overlap each step. Every chunk except the last
// is exactly MaxChars long; the final chunk carries the remainder. Empty
// input yields no chunks. Offsets are in runes so multi-byte text never
// splits inside a code point.
func SplitText(text string, cfg ChunkConfig) ([]string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := cfg.MaxChars - cfg.Overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + cfg.MaxChars
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks, nil
}

// SplitDocument splits a document's content and stamps each chunk with the
// document source and its position in the sequence.
func SplitDocument(doc *domain.Document, cfg ChunkConfig) ([]domain.Chunk, error) {
	parts, err := SplitText(doc.Content, cfg)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, domain.Chunk{
			Source:  doc.Source,
			Index:   i,
			Content: part,
		})
	}
	return chunks, nil
}
