package domain

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCallRequest is a single tool invocation requested by the language
// model. Arguments is the raw JSON argument payload.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one role-tagged unit of conversation. Assistant messages may
// carry pending tool calls; tool messages carry the evidence produced for one
// tool call, plus the structured records out of band.
type Message struct {
	Role       MessageRole
	Content    string
	ToolCalls  []ToolCallRequest
	ToolCallID string
	Records    []RetrievedRecord
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// ModelOutputKind tags the two possible language-model responses.
type ModelOutputKind int

const (
	// ModelOutputFinal is a plain textual answer.
	ModelOutputFinal ModelOutputKind = iota
	// ModelOutputToolCalls is one or more requested tool invocations.
	ModelOutputToolCalls
)

// ModelOutput is the tagged result of one language-model invocation: either
// a final answer or a batch of tool-call requests.
type ModelOutput struct {
	Kind      ModelOutputKind
	Text      string
	ToolCalls []ToolCallRequest
}

// ToolDefinition declares an invocable capability to the language model.
// Parameters is a JSON-schema object describing the arguments.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}
