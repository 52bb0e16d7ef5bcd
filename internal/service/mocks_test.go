package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/docchat-ai/docchat/internal/domain"
)

type mockDocumentSource struct {
	mock.Mock
}

func (m *mockDocumentSource) Load(ctx context.Context, identifier string) (*domain.Document, error) {
	args := m.Called(ctx, identifier)
	if doc := args.Get(0); doc != nil {
		return doc.(*domain.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEmbeddingClient struct {
	mock.Mock
	dims int
}

func (m *mockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEmbeddingClient) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if v := args.Get(0); v != nil {
		return v.([][]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEmbeddingClient) Dimensions() int {
	if m.dims == 0 {
		return 4
	}
	return m.dims
}

type mockVectorIndex struct {
	mock.Mock
}

func (m *mockVectorIndex) Exists(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *mockVectorIndex) Create(ctx context.Context, name string, dimension int) error {
	args := m.Called(ctx, name, dimension)
	return args.Error(0)
}

func (m *mockVectorIndex) Dimension(ctx context.Context, name string) (int, error) {
	args := m.Called(ctx, name)
	return args.Int(0), args.Error(1)
}

func (m *mockVectorIndex) Upsert(ctx context.Context, name string, records []domain.IndexedRecord) error {
	args := m.Called(ctx, name, records)
	return args.Error(0)
}

func (m *mockVectorIndex) Query(ctx context.Context, name string, vector []float32, k int) ([]domain.RetrievedRecord, error) {
	args := m.Called(ctx, name, vector, k)
	if v := args.Get(0); v != nil {
		return v.([]domain.RetrievedRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockLanguageModel struct {
	mock.Mock
}

func (m *mockLanguageModel) Generate(ctx context.Context, conversation []domain.Message, tools []domain.ToolDefinition) (*domain.ModelOutput, error) {
	args := m.Called(ctx, conversation, tools)
	if v := args.Get(0); v != nil {
		return v.(*domain.ModelOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockRetriever struct {
	mock.Mock
}

func (m *mockRetriever) Retrieve(ctx context.Context, query string, k int) (*domain.RetrievalResult, error) {
	args := m.Called(ctx, query, k)
	if v := args.Get(0); v != nil {
		return v.(*domain.RetrievalResult), args.Error(1)
	}
	return nil, args.Error(1)
}
