package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrCodeInvalidConfig, "bad chunk config")
	assert.Equal(t, "[INVALID_CONFIGURATION] bad chunk config", err.Error())

	cause := errors.New("connection refused")
	wrapped := NewIndexUnavailableError("docchat_dense", cause)
	assert.Contains(t, wrapped.Error(), "INDEX_UNAVAILABLE")
	assert.Contains(t, wrapped.Error(), "docchat_dense")
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}

func TestWrapExternal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "plain backend error",
			err:      errors.New("429 too many requests"),
			wantCode: ErrCodeEmbeddingProvider,
		},
		{
			name:     "context cancelled",
			err:      context.Canceled,
			wantCode: ErrCodeCancelled,
		},
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("call: %w", context.DeadlineExceeded),
			wantCode: ErrCodeCancelled,
		},
		{
			name:     "existing domain error passes through",
			err:      NewIndexUnavailableError("idx", errors.New("gone")),
			wantCode: ErrCodeIndexUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapExternal(tt.err, NewEmbeddingProviderError)
			assert.Equal(t, tt.wantCode, ErrorCode(got))
		})
	}
}

func TestWrapExternal_Nil(t *testing.T) {
	assert.NoError(t, WrapExternal(nil, NewEmbeddingProviderError))
}

func TestAgentExecutionError(t *testing.T) {
	partial := []Message{
		NewUserMessage("what color is the sky?"),
		{Role: RoleAssistant, ToolCalls: []ToolCallRequest{{ID: "call_1", Name: "retrieve"}}},
	}
	cause := NewLanguageModelError(errors.New("model overloaded"))
	err := NewAgentExecutionError(partial, cause)

	assert.Equal(t, ErrCodeAgentExecution, ErrorCode(err))
	assert.Contains(t, err.Error(), "after 2 messages")
	assert.ErrorIs(t, err, cause)

	var ae *AgentExecutionError
	assert.True(t, errors.As(err, &ae))
	assert.Len(t, ae.Partial, 2)
}

func TestIngestJobStatus_IsValid(t *testing.T) {
	assert.True(t, IngestJobStatusPending.IsValid())
	assert.True(t, IngestJobStatusFailed.IsValid())
	assert.False(t, IngestJobStatus("queued").IsValid())
}
