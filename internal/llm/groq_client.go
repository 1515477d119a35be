package llm

import openai "github.com/openai/openai-go"

const (
	groqDefaultBaseURL = "https://api.groq.com/openai/v1"
	groqDefaultModel   = "llama-3.3-70b-versatile"
)

// Groq rejects null assistant content and empty tool results, and documents
// max_tokens rather than max_completion_tokens.
var groqDialect = chatDialect{
	assistantToolCallContent: true,
	emptyToolResult:          "(no output)",
	legacyMaxTokens:          true,
}

// NewGroqClient constructs a client for Groq's OpenAI-compatible endpoint.
func NewGroqClient(opts Options) (*ChatCompletionsClient, error) {
	return newChatCompletionsClient(ProviderGroq, opts, groqDefaultModel, groqDefaultBaseURL, convertRequestToGroq)
}

// convertRequestToGroq is the Groq variant's conversion.
func convertRequestToGroq(req *CompletionRequest, model string) (openai.ChatCompletionNewParams, error) {
	return buildChatParams(req, model, groqDialect)
}
