package llm

import (
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// chatDialect captures the field conventions that differ between
// Chat Completions compatible providers.
type chatDialect struct {
	// assistantToolCallContent sends "" instead of omitting content on
	// assistant messages that only carry tool calls.
	assistantToolCallContent bool
	// emptyToolResult replaces empty tool output, which some endpoints reject.
	emptyToolResult string
	// legacyMaxTokens uses max_tokens instead of max_completion_tokens.
	legacyMaxTokens bool
}

var openAIDialect = chatDialect{}

// convertRequestToOpenAI is the OpenAI variant's conversion.
func convertRequestToOpenAI(req *CompletionRequest, model string) (openai.ChatCompletionNewParams, error) {
	return buildChatParams(req, model, openAIDialect)
}

func buildChatParams(req *CompletionRequest, model string, dialect chatDialect) (openai.ChatCompletionNewParams, error) {
	messages, err := convertMessagesToChat(req.Messages, dialect)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}

	if req.MaxTokens > 0 {
		if dialect.legacyMaxTokens {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		} else {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		}
	}

	if len(req.Tools) > 0 {
		params.Tools = convertToolsToChat(req.Tools)
		choice := req.ToolChoice
		if choice == "" {
			choice = ToolChoiceAuto
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(string(choice)),
		}
	}

	return params, nil
}

func convertMessagesToChat(messages []Message, dialect chatDialect) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case RoleAssistant:
			out = append(out, convertAssistantToChat(msg, dialect))
		case RoleTool:
			if msg.ToolCallID == "" {
				return nil, fmt.Errorf("tool message %d has no tool call id", i)
			}
			content := msg.Content
			if content == "" && dialect.emptyToolResult != "" {
				content = dialect.emptyToolResult
			}
			out = append(out, openai.ToolMessage(content, msg.ToolCallID))
		default:
			return nil, fmt.Errorf("message %d has unsupported role %q", i, msg.Role)
		}
	}
	return out, nil
}

func convertAssistantToChat(msg Message, dialect chatDialect) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Content)
	}

	assistant := &openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" || dialect.assistantToolCallContent {
		assistant.Content.OfString = openai.String(msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		args := tc.Arguments
		if args == "" {
			args = "{}"
		}
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func convertToolsToChat(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, tool := range tools {
		def := shared.FunctionDefinitionParam{
			Name:       tool.Name,
			Parameters: shared.FunctionParameters(tool.Parameters),
		}
		if tool.Description != "" {
			def.Description = openai.String(tool.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: def})
	}
	return out
}
