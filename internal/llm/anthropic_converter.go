package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

// convertRequestToAnthropic is the Anthropic variant's conversion. System
// messages move into the system field; tool results become tool_result
// blocks on a user turn, merged when consecutive.
func convertRequestToAnthropic(req *CompletionRequest, model string, maxTokens int) (anthropic.MessageNewParams, error) {
	if req == nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic completion request cannot be nil")
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	system, messages, err := convertMessagesToAnthropic(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("anthropic completion requires at least one user or assistant message")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		System:      system,
		Temperature: anthropic.Float(req.Temperature),
	}

	if len(req.Tools) > 0 {
		params.Tools = convertToolsToAnthropic(req.Tools)
		if req.ToolChoice == ToolChoiceNone {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
		} else {
			params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
		}
	}

	return params, nil
}

func convertMessagesToAnthropic(messages []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam, error) {
	var system []anthropic.TextBlockParam
	out := make([]anthropic.MessageParam, 0, len(messages))

	appendBlocks := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			if text := strings.TrimSpace(msg.Content); text != "" {
				system = append(system, anthropic.TextBlockParam{Text: text})
			}
		case RoleUser:
			if msg.Content == "" {
				continue
			}
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(msg.Content))
		case RoleAssistant:
			blocks, err := anthropicAssistantBlocks(msg, i == len(messages)-1)
			if err != nil {
				return nil, nil, fmt.Errorf("message %d: %w", i, err)
			}
			if len(blocks) > 0 {
				appendBlocks(anthropic.MessageParamRoleAssistant, blocks...)
			}
		case RoleTool:
			if msg.ToolCallID == "" {
				return nil, nil, fmt.Errorf("tool message %d has no tool call id", i)
			}
			appendBlocks(anthropic.MessageParamRoleUser, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		default:
			return nil, nil, fmt.Errorf("message %d has unsupported role %q", i, msg.Role)
		}
	}

	return system, out, nil
}

// anthropicAssistantBlocks converts an assistant turn. A trailing assistant
// message is a prefill and must not end in whitespace.
func anthropicAssistantBlocks(msg Message, last bool) ([]anthropic.ContentBlockParamUnion, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))

	text := msg.Content
	if last && len(msg.ToolCalls) == 0 {
		text = strings.TrimRight(text, " \t\r\n")
	}
	if text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(text))
	}

	for _, tc := range msg.ToolCalls {
		input := map[string]any{}
		if strings.TrimSpace(tc.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
				return nil, fmt.Errorf("tool call %s has invalid arguments: %w", tc.ID, err)
			}
		}
		blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
	}
	return blocks, nil
}

func convertToolsToAnthropic(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if props, ok := tool.Parameters["properties"]; ok {
			schema.Properties = props
		}
		if required, ok := tool.Parameters["required"].([]string); ok && len(required) > 0 {
			schema.Required = required
		}

		param := &anthropic.ToolParam{
			Name:        tool.Name,
			InputSchema: schema,
			Type:        anthropic.ToolTypeCustom,
		}
		if tool.Description != "" {
			param.Description = anthropic.String(tool.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: param})
	}
	return out
}
