package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat-ai/docchat/internal/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output   []byte
	err      error
	lastName string
	lastArgs []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.lastName = name
	m.lastArgs = args
	return m.output, m.err
}

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
	return path
}

func TestLoad_Success(t *testing.T) {
	runner := &mockRunner{output: []byte("The sky is blue.\nWater boils at 100 degrees Celsius.\n")}
	extractor := NewWithRunner(runner)
	path := writeTempPDF(t)

	doc, err := extractor.Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "The sky is blue.\nWater boils at 100 degrees Celsius.", doc.Content)
	assert.Equal(t, "pdftotext", runner.lastName)
	assert.Equal(t, []string{"-enc", "UTF-8", path, "-"}, runner.lastArgs)
}

func TestLoad_MissingFile(t *testing.T) {
	extractor := NewWithRunner(&mockRunner{output: []byte("text")})

	_, err := extractor.Load(context.Background(), "/nonexistent/file.pdf")

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeDocumentLoad, domain.ErrorCode(err))
}

func TestLoad_ExtractionFails(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	extractor := NewWithRunner(runner)
	path := writeTempPDF(t)

	_, err := extractor.Load(context.Background(), path)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeDocumentLoad, domain.ErrorCode(err))
	assert.Contains(t, err.Error(), "pdftotext")
}

func TestLoad_NoExtractableText(t *testing.T) {
	runner := &mockRunner{output: []byte("  \n\t \n")}
	extractor := NewWithRunner(runner)
	path := writeTempPDF(t)

	_, err := extractor.Load(context.Background(), path)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeDocumentLoad, domain.ErrorCode(err))
	assert.Contains(t, err.Error(), "no extractable text")
}

func TestLoad_Cancelled(t *testing.T) {
	runner := &mockRunner{err: errors.New("signal: killed")}
	extractor := NewWithRunner(runner)
	path := writeTempPDF(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := extractor.Load(ctx, path)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeCancelled, domain.ErrorCode(err))
}
