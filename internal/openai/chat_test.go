package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat-ai/docchat/internal/domain"
)

type fakeChatAPI struct {
	resp    openai.ChatCompletionResponse
	err     error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func textResponse(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
	}
}

func toolCallResponse(calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls}},
		},
	}
}

var retrieveTool = domain.ToolDefinition{
	Name:        "retrieve",
	Description: "Retrieve information related to a query.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
	},
}

func TestGenerate_FinalAnswer(t *testing.T) {
	api := &fakeChatAPI{resp: textResponse("The sky is blue.")}
	model := NewChatModelWithAPI(api, "gpt-4o-mini")

	out, err := model.Generate(context.Background(),
		[]domain.Message{domain.NewUserMessage("What color is the sky?")},
		[]domain.ToolDefinition{retrieveTool},
	)

	require.NoError(t, err)
	assert.Equal(t, domain.ModelOutputFinal, out.Kind)
	assert.Equal(t, "The sky is blue.", out.Text)
	assert.Empty(t, out.ToolCalls)
}

func TestGenerate_ToolCalls(t *testing.T) {
	api := &fakeChatAPI{resp: toolCallResponse(openai.ToolCall{
		ID:   "call_abc",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      "retrieve",
			Arguments: `{"query":"sky color"}`,
		},
	})}
	model := NewChatModelWithAPI(api, "gpt-4o-mini")

	out, err := model.Generate(context.Background(),
		[]domain.Message{domain.NewUserMessage("What color is the sky?")},
		[]domain.ToolDefinition{retrieveTool},
	)

	require.NoError(t, err)
	assert.Equal(t, domain.ModelOutputToolCalls, out.Kind)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "call_abc", out.ToolCalls[0].ID)
	assert.Equal(t, "retrieve", out.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"sky color"}`, out.ToolCalls[0].Arguments)
}

func TestGenerate_DeclaresTools(t *testing.T) {
	api := &fakeChatAPI{resp: textResponse("ok")}
	model := NewChatModelWithAPI(api, "")

	_, err := model.Generate(context.Background(),
		[]domain.Message{domain.NewUserMessage("hello")},
		[]domain.ToolDefinition{retrieveTool},
	)

	require.NoError(t, err)
	assert.Equal(t, DefaultChatModel, api.lastReq.Model)
	require.Len(t, api.lastReq.Tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, api.lastReq.Tools[0].Type)
	assert.Equal(t, "retrieve", api.lastReq.Tools[0].Function.Name)
}

func TestGenerate_ConvertsConversation(t *testing.T) {
	api := &fakeChatAPI{resp: textResponse("done")}
	model := NewChatModelWithAPI(api, "gpt-4o-mini")

	conversation := []domain.Message{
		domain.NewUserMessage("question"),
		{
			Role: domain.RoleAssistant,
			ToolCalls: []domain.ToolCallRequest{
				{ID: "call_1", Name: "retrieve", Arguments: `{"query":"q"}`},
			},
		},
		{Role: domain.RoleTool, ToolCallID: "call_1", Content: "Source: a.pdf\nContent: evidence"},
	}

	_, err := model.Generate(context.Background(), conversation, nil)
	require.NoError(t, err)

	msgs := api.lastReq.Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)
	assert.Equal(t, openai.ChatMessageRoleTool, msgs[2].Role)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
}

func TestGenerate_APIError(t *testing.T) {
	api := &fakeChatAPI{err: errors.New("model overloaded")}
	model := NewChatModelWithAPI(api, "gpt-4o-mini")

	_, err := model.Generate(context.Background(), []domain.Message{domain.NewUserMessage("hi")}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestGenerate_NoChoices(t *testing.T) {
	api := &fakeChatAPI{resp: openai.ChatCompletionResponse{}}
	model := NewChatModelWithAPI(api, "gpt-4o-mini")

	_, err := model.Generate(context.Background(), []domain.Message{domain.NewUserMessage("hi")}, nil)

	assert.ErrorIs(t, err, ErrNoChoices)
}
