package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docchat-ai/docchat/internal/domain"
)

func TestRetrievalService_Retrieve(t *testing.T) {
	embedder := new(mockEmbeddingClient)
	index := new(mockVectorIndex)

	vector := []float32{0.5, 0.5, 0, 0}
	embedder.On("GenerateEmbedding", mock.Anything, "boiling point").Return(vector, nil)
	index.On("Query", mock.Anything, testIndex, vector, 2).Return([]domain.RetrievedRecord{
		{Source: "physics.pdf", Content: "Water boils at 100 degrees Celsius.", Score: 0.91},
		{Source: "physics.pdf", Content: "The sky is blue.", Score: 0.42},
	}, nil)

	svc := NewRetrievalService(embedder, index, testIndex, 0)
	result, err := svc.Retrieve(context.Background(), "boiling point", 0)

	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	expected := "Source: physics.pdf\nContent: Water boils at 100 degrees Celsius.\n\n" +
		"Source: physics.pdf\nContent: The sky is blue."
	assert.Equal(t, expected, result.Evidence)
}

func TestRetrievalService_ExplicitKOverridesDefault(t *testing.T) {
	embedder := new(mockEmbeddingClient)
	index := new(mockVectorIndex)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0, 0, 0}, nil)
	index.On("Query", mock.Anything, testIndex, mock.Anything, 5).Return([]domain.RetrievedRecord{}, nil)

	svc := NewRetrievalService(embedder, index, testIndex, 2)
	_, err := svc.Retrieve(context.Background(), "q", 5)

	require.NoError(t, err)
	index.AssertExpectations(t)
}

func TestRetrievalService_EmptyIndex(t *testing.T) {
	embedder := new(mockEmbeddingClient)
	index := new(mockVectorIndex)

	embedder.On("GenerateEmbedding", mock.Anything, "anything").Return([]float32{1, 0, 0, 0}, nil)
	index.On("Query", mock.Anything, testIndex, mock.Anything, 2).Return([]domain.RetrievedRecord{}, nil)

	svc := NewRetrievalService(embedder, index, testIndex, 2)
	result, err := svc.Retrieve(context.Background(), "anything", 0)

	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, "", result.Evidence)
}

func TestRetrievalService_EmbeddingFailure(t *testing.T) {
	embedder := new(mockEmbeddingClient)
	index := new(mockVectorIndex)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return(nil, errors.New("provider down"))

	svc := NewRetrievalService(embedder, index, testIndex, 2)
	_, err := svc.Retrieve(context.Background(), "q", 0)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeEmbeddingProvider, domain.ErrorCode(err))
	index.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrievalService_IndexFailure(t *testing.T) {
	embedder := new(mockEmbeddingClient)
	index := new(mockVectorIndex)

	embedder.On("GenerateEmbedding", mock.Anything, "q").Return([]float32{1, 0, 0, 0}, nil)
	index.On("Query", mock.Anything, testIndex, mock.Anything, 2).Return(nil, errors.New("relation does not exist"))

	svc := NewRetrievalService(embedder, index, testIndex, 2)
	_, err := svc.Retrieve(context.Background(), "q", 0)

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeIndexUnavailable, domain.ErrorCode(err))
}
