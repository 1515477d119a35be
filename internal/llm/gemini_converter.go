package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// convertRequestToGemini is the Gemini variant's conversion. Tool results
// are function responses on a user turn; consecutive turns of one role merge.
func convertRequestToGemini(req *CompletionRequest, maxTokens int) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if req == nil {
		return nil, nil, fmt.Errorf("gemini completion request cannot be nil")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	var system []string
	var contents []*genai.Content
	appendPart := func(role string, part *genai.Part) {
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, part)
			return
		}
		contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.Role(role)))
	}

	for i, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			if text := strings.TrimSpace(msg.Content); text != "" {
				system = append(system, text)
			}
		case RoleUser:
			appendPart(genai.RoleUser, genai.NewPartFromText(msg.Content))
		case RoleAssistant:
			if msg.Content != "" {
				appendPart(genai.RoleModel, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := map[string]any{}
				if strings.TrimSpace(tc.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
						return nil, nil, fmt.Errorf("message %d: tool call %s has invalid arguments: %w", i, tc.ID, err)
					}
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				appendPart(genai.RoleModel, part)
			}
		case RoleTool:
			if msg.ToolName == "" {
				return nil, nil, fmt.Errorf("tool message %d has no tool name", i)
			}
			part := genai.NewPartFromFunctionResponse(msg.ToolName, map[string]any{"output": msg.Content})
			part.FunctionResponse.ID = msg.ToolCallID
			appendPart(genai.RoleUser, part)
		default:
			return nil, nil, fmt.Errorf("message %d has unsupported role %q", i, msg.Role)
		}
	}

	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 tool.Name,
				Description:          tool.Description,
				ParametersJsonSchema: tool.Parameters,
			})
		}
		mode := genai.FunctionCallingConfigModeAuto
		if req.ToolChoice == ToolChoiceNone {
			mode = genai.FunctionCallingConfigModeNone
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		cfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode}}
	}

	return contents, cfg, nil
}
