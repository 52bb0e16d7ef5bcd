package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/docchat-ai/docchat/internal/domain"
)

// DefaultChatModel is the model used for agent chat completions
const DefaultChatModel = "gpt-4o-mini"

// ErrNoChoices is returned when the API responds without any completion choice
var ErrNoChoices = errors.New("no completion choices returned")

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatModel generates agent turns from a conversation, declaring the
// available tools so the model can request invocations.
type ChatModel struct {
	api   ChatAPI
	model string
}

type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewChatModel creates a ChatModel backed by the OpenAI API.
func NewChatModel(cfg ChatConfig) *ChatModel {
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &ChatModel{
		api:   openai.NewClientWithConfig(clientCfg),
		model: model,
	}
}

// NewChatModelWithAPI creates a ChatModel over an explicit API implementation.
func NewChatModelWithAPI(api ChatAPI, model string) *ChatModel {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatModel{api: api, model: model}
}

// Generate invokes the chat model with the full conversation and the declared
// tools, returning either a final answer or the requested tool calls.
func (m *ChatModel) Generate(ctx context.Context, conversation []domain.Message, tools []domain.ToolDefinition) (*domain.ModelOutput, error) {
	req := openai.ChatCompletionRequest{
		Model:    m.model,
		Messages: toChatMessages(conversation),
		Tools:    toChatTools(tools),
	}

	resp, err := m.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	msg := resp.Choices[0].Message
	if calls := toToolCallRequests(msg.ToolCalls); len(calls) > 0 {
		return &domain.ModelOutput{
			Kind:      domain.ModelOutputToolCalls,
			ToolCalls: calls,
		}, nil
	}

	return &domain.ModelOutput{
		Kind: domain.ModelOutputFinal,
		Text: msg.Content,
	}, nil
}

func toChatMessages(conversation []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(conversation))
	for _, msg := range conversation {
		m := openai.ChatCompletionMessage{
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		switch msg.Role {
		case domain.RoleUser:
			m.Role = openai.ChatMessageRoleUser
		case domain.RoleAssistant:
			m.Role = openai.ChatMessageRoleAssistant
		case domain.RoleTool:
			m.Role = openai.ChatMessageRoleTool
		default:
			m.Role = string(msg.Role)
		}
		for _, call := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			})
		}
		out = append(out, m)
	}
	return out
}

func toChatTools(tools []domain.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func toToolCallRequests(calls []openai.ToolCall) []domain.ToolCallRequest {
	var out []domain.ToolCallRequest
	for _, call := range calls {
		if call.Type != openai.ToolTypeFunction {
			continue
		}
		out = append(out, domain.ToolCallRequest{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}
