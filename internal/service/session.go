package service

import (
	"context"
	"sync"

	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/telemetry"
)

// AgentRunner runs one agent turn over a conversation.
type AgentRunner interface {
	Run(ctx context.Context, conversation []domain.Message) ([]domain.Message, error)
}

// session holds one conversation. Messages are append only.
type session struct {
	mu       sync.Mutex
	messages []domain.Message
}

// SessionManager keeps per-session conversations in memory and turns
// user input into agent runs. Sessions are created on first use and
// live until the process exits.
type SessionManager struct {
	agent AgentRunner

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates a SessionManager backed by the given agent.
func NewSessionManager(agent AgentRunner) *SessionManager {
	return &SessionManager{
		agent:    agent,
		sessions: make(map[string]*session),
	}
}

func (m *SessionManager) getOrCreate(sessionID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{}
		m.sessions[sessionID] = s
	}
	return s
}

// Send appends the user's text to the session conversation, runs the
// agent, appends every message the run produced and returns the final
// assistant answer. Turns within one session are serialized. When the
// agent fails, the user message stays committed but none of the run's
// partial output does; the error carries the partial messages instead.
func (m *SessionManager) Send(ctx context.Context, sessionID, text string) (string, error) {
	if sessionID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "session id is required")
	}
	if text == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "message text is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "session.send", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "send",
	})
	defer span.End()

	s := m.getOrCreate(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, domain.NewUserMessage(text))

	produced, err := m.agent.Run(ctx, s.messages)
	if err != nil {
		span.SetError(err)
		return "", err
	}

	s.messages = append(s.messages, produced...)
	if len(produced) == 0 {
		return "", domain.NewDomainError(domain.ErrCodeAgentExecution, "agent produced no messages")
	}
	return produced[len(produced)-1].Content, nil
}

// History returns a copy of the session's conversation so far. Unknown
// sessions return an empty history.
func (m *SessionManager) History(sessionID string) []domain.Message {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
