package llm

import (
	"encoding/json"
	"testing"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func toolRoundTrip() []Message {
	return []Message{
		{Role: RoleSystem, Content: "You are helpful."},
		{Role: RoleUser, Content: "what is in a.go and b.go?"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "call_a", Name: "read_file", Arguments: `{"path":"a.go"}`},
			{ID: "call_b", Name: "read_file", Arguments: `{"path":"b.go"}`},
		}},
		{Role: RoleTool, ToolCallID: "call_a", ToolName: "read_file", Content: "package a"},
		{Role: RoleTool, ToolCallID: "call_b", ToolName: "read_file", Content: ""},
	}
}

func marshalToMap(t *testing.T, v any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := []struct {
		raw  string
		want FinishReason
	}{
		{"", FinishNone},
		{"stop", FinishStop},
		{"end_turn", FinishStop},
		{"STOP", FinishStop},
		{"length", FinishLength},
		{"max_tokens", FinishLength},
		{"MAX_TOKENS", FinishLength},
		{"tool_use", FinishToolCalls},
		{"content_filter", FinishReason("content_filter")},
		{"SAFETY", FinishReason("safety")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFinishReason(tt.raw))
		})
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" Groq ")
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, p)
	assert.Equal(t, "groq", p.String())

	_, err = ParseProvider("cohere")
	assert.Error(t, err)
	assert.Equal(t, "Provider(99)", Provider(99).String())
}

func TestNewClientRequiresKey(t *testing.T) {
	for _, p := range []Provider{ProviderOpenAI, ProviderGroq, ProviderAnthropic, ProviderGemini} {
		_, err := NewClient(p, Options{})
		assert.Error(t, err, p.String())
	}
}

func TestOpenAIAndGroqConvertersDiffer(t *testing.T) {
	req := &CompletionRequest{Messages: toolRoundTrip(), Tools: toolMenu(), MaxTokens: 64}

	openAIParams, err := convertRequestToOpenAI(req, "gpt")
	require.NoError(t, err)
	groqParams, err := convertRequestToGroq(req, "llama")
	require.NoError(t, err)

	oa := marshalToMap(t, openAIParams)
	gq := marshalToMap(t, groqParams)

	oaMsgs := oa["messages"].([]any)
	gqMsgs := gq["messages"].([]any)
	require.Len(t, oaMsgs, 5)
	require.Len(t, gqMsgs, 5)

	oaAssistant := oaMsgs[2].(map[string]any)
	gqAssistant := gqMsgs[2].(map[string]any)
	assert.NotContains(t, oaAssistant, "content")
	assert.Equal(t, "", gqAssistant["content"])
	assert.Len(t, gqAssistant["tool_calls"], 2)

	assert.Equal(t, "", oaMsgs[4].(map[string]any)["content"])
	assert.Equal(t, "(no output)", gqMsgs[4].(map[string]any)["content"])
	assert.Equal(t, "call_b", gqMsgs[4].(map[string]any)["tool_call_id"])

	assert.Contains(t, oa, "max_completion_tokens")
	assert.Contains(t, gq, "max_tokens")
	assert.Equal(t, "auto", gq["tool_choice"])
}

func TestChatConverterRejectsOrphanToolMessage(t *testing.T) {
	_, err := convertRequestToOpenAI(&CompletionRequest{Messages: []Message{{Role: RoleTool, Content: "x"}}}, "gpt")
	assert.Error(t, err)
}

func TestAnthropicConverter(t *testing.T) {
	msgs := append(toolRoundTrip(), Message{Role: RoleAssistant, Content: "Partial answer \n"})
	req := &CompletionRequest{Messages: msgs, Tools: toolMenu(), Temperature: 0.3}

	params, err := convertRequestToAnthropic(req, "claude-test", 512)
	require.NoError(t, err)

	require.Len(t, params.System, 1)
	assert.Equal(t, "You are helpful.", params.System[0].Text)
	assert.EqualValues(t, 512, params.MaxTokens)

	// user, assistant(tool_use x2), user(tool_result x2), assistant(prefill)
	require.Len(t, params.Messages, 4)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, params.Messages[1].Role)
	assert.Len(t, params.Messages[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[2].Role)
	assert.Len(t, params.Messages[2].Content, 2)

	prefill := marshalToMap(t, params.Messages[3])
	blocks := prefill["content"].([]any)
	assert.Equal(t, "Partial answer", blocks[0].(map[string]any)["text"])

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "read_file", params.Tools[0].OfTool.Name)
	assert.Equal(t, []string{"path"}, params.Tools[0].OfTool.InputSchema.Required)
	assert.NotNil(t, params.ToolChoice.OfAuto)
}

func TestAnthropicConverterNeedsConversation(t *testing.T) {
	_, err := convertRequestToAnthropic(&CompletionRequest{Messages: []Message{{Role: RoleSystem, Content: "only"}}}, "m", 10)
	assert.Error(t, err)
}

func TestAnthropicConverterRejectsBadArguments(t *testing.T) {
	_, err := convertRequestToAnthropic(&CompletionRequest{Messages: []Message{
		{Role: RoleUser, Content: "x"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "read_file", Arguments: "{oops"}}},
	}}, "m", 10)
	assert.Error(t, err)
}

func TestGeminiConverter(t *testing.T) {
	req := &CompletionRequest{Messages: toolRoundTrip(), Tools: toolMenu(), ToolChoice: ToolChoiceNone, MaxTokens: 99}

	contents, cfg, err := convertRequestToGemini(req, 0)
	require.NoError(t, err)

	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, "You are helpful.", cfg.SystemInstruction.Parts[0].Text)
	assert.EqualValues(t, 99, cfg.MaxOutputTokens)
	assert.Equal(t, genai.FunctionCallingConfigModeNone, cfg.ToolConfig.FunctionCallingConfig.Mode)
	assert.Equal(t, "read_file", cfg.Tools[0].FunctionDeclarations[0].Name)

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "call_a", contents[1].Parts[0].FunctionCall.ID)
	assert.Equal(t, "a.go", contents[1].Parts[0].FunctionCall.Args["path"])

	require.Len(t, contents[2].Parts, 2)
	resp := contents[2].Parts[0].FunctionResponse
	assert.Equal(t, "read_file", resp.Name)
	assert.Equal(t, "package a", resp.Response["output"])
}

func TestGeminiConverterNeedsToolName(t *testing.T) {
	_, _, err := convertRequestToGemini(&CompletionRequest{Messages: []Message{{Role: RoleTool, ToolCallID: "x", Content: "y"}}}, 0)
	assert.Error(t, err)
}
