// Package pdf extracts plain text from PDF files by shelling out to
// pdftotext (poppler-utils).
package pdf

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/docchat-ai/docchat/internal/domain"
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor loads PDF documents as plain text. It implements the document
// source consumed by the ingestion pipeline.
type Extractor struct {
	runner CommandRunner
}

// New creates an Extractor using the real pdftotext binary.
func New() *Extractor {
	return NewWithRunner(ExecRunner{})
}

// NewWithRunner creates an Extractor with an explicit command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// Load extracts the text of the PDF at path. The returned document carries
// the file path as its source identifier. Unreadable files, extraction
// failures and PDFs with no extractable text all fail with a document load
// error.
func (e *Extractor) Load(ctx context.Context, path string) (*domain.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domain.NewDocumentLoadError(path, err)
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, domain.NewCancelledError(ctx.Err())
		}
		return nil, domain.NewDocumentLoadError(path, fmt.Errorf("pdftotext: %w", err))
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, domain.NewDocumentLoadError(path, fmt.Errorf("no extractable text"))
	}

	return &domain.Document{Source: path, Content: text}, nil
}
