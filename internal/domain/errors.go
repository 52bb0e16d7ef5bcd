package domain

import (
	"context"
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeInvalidConfig     = "INVALID_CONFIGURATION"
	ErrCodeDocumentLoad      = "DOCUMENT_LOAD_ERROR"
	ErrCodeEmbeddingProvider = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeIndexUnavailable  = "INDEX_UNAVAILABLE"
	ErrCodeLanguageModel     = "LANGUAGE_MODEL_ERROR"
	ErrCodeAgentExecution    = "AGENT_EXECUTION_ERROR"
	ErrCodeCancelled         = "CANCELLED"
)

// Configuration errors (programmer error, never retried)
var (
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeInvalidConfig, "chunk overlap must be non-negative and smaller than max size")
	ErrInvalidDimension     = NewDomainError(ErrCodeInvalidConfig, "embedding dimension must be positive")
	ErrInvalidIndexName     = NewDomainError(ErrCodeInvalidConfig, "index name must be a valid lowercase identifier")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
	ErrSessionNotFound   = NewDomainError(ErrCodeNotFound, "chat session not found")
)

// NewDocumentLoadError wraps a failure to read or parse a source document.
func NewDocumentLoadError(identifier string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeDocumentLoad, fmt.Sprintf("failed to load document %q", identifier), err)
}

// NewEmbeddingProviderError wraps a failure of the embedding backend.
func NewEmbeddingProviderError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingProvider, "embedding provider request failed", err)
}

// NewIndexUnavailableError wraps a failure to reach or create the vector index.
func NewIndexUnavailableError(index string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeIndexUnavailable, fmt.Sprintf("vector index %q unavailable", index), err)
}

// NewLanguageModelError wraps a failure of the chat model backend.
func NewLanguageModelError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeLanguageModel, "language model request failed", err)
}

// NewCancelledError wraps a caller-initiated abort of a blocking call.
func NewCancelledError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeCancelled, "operation cancelled by caller", err)
}

// WrapExternal classifies an error from an external call: context
// cancellation becomes CANCELLED, existing DomainErrors pass through
// unchanged, anything else is wrapped with the given constructor.
func WrapExternal(err error, wrap func(error) *DomainError) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewCancelledError(err)
	}
	return wrap(err)
}

// ErrorCode extracts the DomainError code from err, or INTERNAL_ERROR.
func ErrorCode(err error) string {
	var ae *AgentExecutionError
	if errors.As(err, &ae) {
		return ErrCodeAgentExecution
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// AgentExecutionError wraps any failure during the agent loop. It carries the
// messages produced before the failing call so the caller can inspect the
// partial conversation.
type AgentExecutionError struct {
	Partial []Message
	Err     error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("[%s] agent execution failed after %d messages: %v", ErrCodeAgentExecution, len(e.Partial), e.Err)
}

func (e *AgentExecutionError) Unwrap() error {
	return e.Err
}

// NewAgentExecutionError creates an AgentExecutionError carrying the partial
// message trail accumulated before the failure.
func NewAgentExecutionError(partial []Message, err error) *AgentExecutionError {
	return &AgentExecutionError{Partial: partial, Err: err}
}
