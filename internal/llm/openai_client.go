package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

const openAIDefaultModel = "gpt-4o-mini"

// chatConverter turns a request into Chat Completions params. OpenAI and
// Groq share the endpoint shape but not every field convention.
type chatConverter func(req *CompletionRequest, model string) (openai.ChatCompletionNewParams, error)

// ChatCompletionsClient talks to a Chat Completions compatible endpoint
// through the official openai-go SDK.
type ChatCompletionsClient struct {
	client   openai.Client
	model    string
	provider Provider
	convert  chatConverter
}

// NewOpenAIClient constructs a client that talks directly to the OpenAI API.
func NewOpenAIClient(opts Options) (*ChatCompletionsClient, error) {
	return newChatCompletionsClient(ProviderOpenAI, opts, openAIDefaultModel, "", convertRequestToOpenAI)
}

func newChatCompletionsClient(p Provider, opts Options, defaultModel, defaultBaseURL string, convert chatConverter) (*ChatCompletionsClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%s client requires an API key", p)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	// Retries are left to the caller; a retried stream would replay deltas.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &ChatCompletionsClient{
		client:   openai.NewClient(reqOpts...),
		model:    model,
		provider: p,
		convert:  convert,
	}, nil
}

func (c *ChatCompletionsClient) GetModelName() string {
	return c.model
}

func (c *ChatCompletionsClient) Provider() Provider {
	return c.provider
}

func (c *ChatCompletionsClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%s completion request cannot be nil", c.provider)
	}

	params, err := c.convert(req, modelFor(req, c.model))
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", c.provider, err)
	}

	if len(resp.Choices) == 0 {
		return &CompletionResponse{FinishReason: FinishStop}, nil
	}

	choice := resp.Choices[0]
	out := &CompletionResponse{
		Content:      choice.Message.Content,
		FinishReason: NormalizeFinishReason(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (c *ChatCompletionsClient) Stream(ctx context.Context, req *CompletionRequest) (Stream, error) {
	if req == nil {
		return nil, fmt.Errorf("%s completion request cannot be nil", c.provider)
	}

	params, err := c.convert(req, modelFor(req, c.model))
	if err != nil {
		return nil, err
	}

	return &chatStream{
		provider: c.provider,
		stream:   c.client.Chat.Completions.NewStreaming(ctx, params),
	}, nil
}

type chatStream struct {
	provider Provider
	stream   *ssestream.Stream[openai.ChatCompletionChunk]
	current  StreamDelta
}

func (s *chatStream) Next() bool {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		choice := chunk.Choices[0]
		delta := StreamDelta{
			Text:         choice.Delta.Content,
			FinishReason: NormalizeFinishReason(choice.FinishReason),
		}
		if delta.Text == "" && delta.FinishReason == FinishNone {
			continue
		}
		s.current = delta
		return true
	}
	return false
}

func (s *chatStream) Current() StreamDelta {
	return s.current
}

func (s *chatStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("%s stream failed: %w", s.provider, err)
	}
	return nil
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}
