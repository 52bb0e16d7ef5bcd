package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat-ai/docchat/internal/domain"
)

// echoAgent answers every turn with a canned reply and records the
// conversation length it was handed.
type echoAgent struct {
	mu       sync.Mutex
	seenLens []int
	failNext bool
}

func (a *echoAgent) Run(ctx context.Context, conversation []domain.Message) ([]domain.Message, error) {
	a.mu.Lock()
	a.seenLens = append(a.seenLens, len(conversation))
	fail := a.failNext
	a.failNext = false
	a.mu.Unlock()

	if fail {
		return nil, domain.NewAgentExecutionError(nil, errors.New("boom"))
	}
	reply := fmt.Sprintf("reply %d", len(conversation))
	return []domain.Message{{Role: domain.RoleAssistant, Content: reply}}, nil
}

func TestSessionManager_SendAppendsHistory(t *testing.T) {
	agent := &echoAgent{}
	mgr := NewSessionManager(agent)

	answer, err := mgr.Send(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply 1", answer)

	answer, err = mgr.Send(context.Background(), "s1", "again")
	require.NoError(t, err)
	assert.Equal(t, "reply 3", answer)

	history := mgr.History("s1")
	require.Len(t, history, 4)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, domain.RoleUser, history[2].Role)
	assert.Equal(t, domain.RoleAssistant, history[3].Role)
}

func TestSessionManager_SessionsAreIsolated(t *testing.T) {
	mgr := NewSessionManager(&echoAgent{})

	_, err := mgr.Send(context.Background(), "a", "first")
	require.NoError(t, err)
	_, err = mgr.Send(context.Background(), "b", "second")
	require.NoError(t, err)

	assert.Len(t, mgr.History("a"), 2)
	assert.Len(t, mgr.History("b"), 2)
	assert.Equal(t, "first", mgr.History("a")[0].Content)
	assert.Equal(t, "second", mgr.History("b")[0].Content)
}

func TestSessionManager_FailedRunKeepsUserMessageOnly(t *testing.T) {
	agent := &echoAgent{failNext: true}
	mgr := NewSessionManager(agent)

	_, err := mgr.Send(context.Background(), "s1", "hello")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeAgentExecution, domain.ErrorCode(err))

	history := mgr.History("s1")
	require.Len(t, history, 1)
	assert.Equal(t, domain.RoleUser, history[0].Role)

	// the session stays usable after a failed turn
	answer, err := mgr.Send(context.Background(), "s1", "retry")
	require.NoError(t, err)
	assert.Equal(t, "reply 2", answer)
}

func TestSessionManager_ValidatesInput(t *testing.T) {
	mgr := NewSessionManager(&echoAgent{})

	_, err := mgr.Send(context.Background(), "", "hello")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))

	_, err = mgr.Send(context.Background(), "s1", "")
	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.ErrorCode(err))
}

func TestSessionManager_ConcurrentTurnsSerialize(t *testing.T) {
	agent := &echoAgent{}
	mgr := NewSessionManager(agent)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Send(context.Background(), "shared", "ping")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 8 user messages plus 8 assistant replies, no interleaving lost
	assert.Len(t, mgr.History("shared"), 16)
}

func TestSessionManager_HistoryUnknownSession(t *testing.T) {
	mgr := NewSessionManager(&echoAgent{})
	assert.Empty(t, mgr.History("nope"))
}
