package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/metrics"
	"github.com/docchat-ai/docchat/internal/telemetry"
)

// RetrieveToolName is the name the language model uses to request a
// similarity search.
const RetrieveToolName = "retrieve"

// DefaultMaxToolRounds caps how many times a single agent run may go
// back to the tool before the run is aborted.
const DefaultMaxToolRounds = 5

// LanguageModel produces the next step of a conversation, either a
// final answer or a batch of tool call requests.
type LanguageModel interface {
	Generate(ctx context.Context, conversation []domain.Message, tools []domain.ToolDefinition) (*domain.ModelOutput, error)
}

// Retriever serves the retrieve tool.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (*domain.RetrievalResult, error)
}

// RetrieveToolDefinition describes the retrieve tool to the language model.
func RetrieveToolDefinition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        RetrieveToolName,
		Description: "Search the indexed documents for passages relevant to a query. Use this whenever the answer may depend on the uploaded documents.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
				"k": map[string]any{
					"type":        "integer",
					"description": "How many passages to return. Omit to use the default.",
				},
			},
			"required": []string{"query"},
		},
	}
}

// AgentConfig tunes a single agent run.
type AgentConfig struct {
	// MaxToolRounds is the maximum number of tool rounds per run.
	// Non-positive values fall back to DefaultMaxToolRounds.
	MaxToolRounds int
}

// Agent drives the model/tool loop: call the model, execute any
// requested tool calls, feed the results back, repeat until the model
// produces a final answer or the round cap is hit.
type Agent struct {
	model         LanguageModel
	retriever     Retriever
	maxToolRounds int
}

// NewAgent creates an Agent.
func NewAgent(model LanguageModel, retriever Retriever, cfg AgentConfig) *Agent {
	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}
	return &Agent{model: model, retriever: retriever, maxToolRounds: rounds}
}

type retrieveArgs struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// Run executes the agent loop over the given conversation and returns
// the messages it produced, ending with exactly one assistant answer.
// The input conversation is never mutated. On failure the returned
// error carries every message produced before the failing step.
func (a *Agent) Run(ctx context.Context, conversation []domain.Message) ([]domain.Message, error) {
	ctx, span := telemetry.StartSpan(ctx, "agent.run", telemetry.SpanAttributes{Operation: "run"})
	defer span.End()

	working := make([]domain.Message, len(conversation), len(conversation)+4)
	copy(working, conversation)

	var produced []domain.Message
	tools := []domain.ToolDefinition{RetrieveToolDefinition()}
	toolRounds := 0

	for {
		out, err := a.model.Generate(ctx, working, tools)
		metrics.ChatCompletions.WithLabelValues(metrics.StatusLabel(err)).Inc()
		if err != nil {
			err = domain.NewAgentExecutionError(produced, domain.WrapExternal(err, domain.NewLanguageModelError))
			span.SetError(err)
			return nil, err
		}

		switch out.Kind {
		case domain.ModelOutputFinal:
			final := domain.Message{Role: domain.RoleAssistant, Content: out.Text}
			produced = append(produced, final)
			metrics.ToolRounds.Observe(float64(toolRounds))
			return produced, nil

		case domain.ModelOutputToolCalls:
			assistant := domain.Message{Role: domain.RoleAssistant, ToolCalls: out.ToolCalls}
			produced = append(produced, assistant)
			working = append(working, assistant)

			toolRounds++
			if toolRounds > a.maxToolRounds {
				err := domain.NewAgentExecutionError(produced,
					domain.NewDomainError(domain.ErrCodeAgentExecution, "tool loop limit exceeded"))
				span.SetError(err)
				return nil, err
			}

			for _, call := range out.ToolCalls {
				toolMsg, err := a.executeToolCall(ctx, call)
				if err != nil {
					err = domain.NewAgentExecutionError(produced, err)
					span.SetError(err)
					return nil, err
				}
				produced = append(produced, *toolMsg)
				working = append(working, *toolMsg)
			}

		default:
			err := domain.NewAgentExecutionError(produced,
				domain.NewDomainError(domain.ErrCodeAgentExecution,
					fmt.Sprintf("unexpected model output kind %q", out.Kind)))
			span.SetError(err)
			return nil, err
		}
	}
}

func (a *Agent) executeToolCall(ctx context.Context, call domain.ToolCallRequest) (*domain.Message, error) {
	if call.Name != RetrieveToolName {
		return nil, domain.NewDomainError(domain.ErrCodeAgentExecution,
			fmt.Sprintf("model requested unknown tool %q", call.Name))
	}

	var args retrieveArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAgentExecution,
			fmt.Sprintf("invalid arguments for tool %q", call.Name), err)
	}

	result, err := a.retriever.Retrieve(ctx, args.Query, args.K)
	if err != nil {
		return nil, err
	}

	return &domain.Message{
		Role:       domain.RoleTool,
		Content:    result.Evidence,
		ToolCallID: call.ID,
		Records:    result.Records,
	}, nil
}
