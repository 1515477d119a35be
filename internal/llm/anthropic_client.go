package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/dimslaev/ai-chat/internal/consts"
)

const anthropicDefaultModel = "claude-sonnet-4-5"

// AnthropicClient implements Client using the Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicClient constructs a client for the Anthropic Messages API.
func NewAnthropicClient(opts Options) (*AnthropicClient, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("anthropic client requires an API key")
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = anthropicDefaultModel
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = consts.DefaultMaxTokens
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

func (c *AnthropicClient) GetModelName() string {
	return c.model
}

func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

func (c *AnthropicClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	params, err := convertRequestToAnthropic(req, modelFor(req, c.model), c.maxTokens)
	if err != nil {
		return nil, err
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}

	out := &CompletionResponse{FinishReason: NormalizeFinishReason(string(msg.StopReason))}
	var text strings.Builder
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := "{}"
			if len(block.Input) > 0 {
				args = string(block.Input)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	out.Content = text.String()
	return out, nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req *CompletionRequest) (Stream, error) {
	params, err := convertRequestToAnthropic(req, modelFor(req, c.model), c.maxTokens)
	if err != nil {
		return nil, err
	}
	return &anthropicStream{stream: c.client.Messages.NewStreaming(ctx, params)}, nil
}

type anthropicStream struct {
	stream  *ssestream.Stream[anthropic.MessageStreamEventUnion]
	current StreamDelta
}

func (s *anthropicStream) Next() bool {
	for s.stream.Next() {
		switch event := s.stream.Current().AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			textDelta, ok := event.Delta.AsAny().(anthropic.TextDelta)
			if !ok || textDelta.Text == "" {
				continue
			}
			s.current = StreamDelta{Text: textDelta.Text}
			return true
		case anthropic.MessageDeltaEvent:
			reason := NormalizeFinishReason(string(event.Delta.StopReason))
			if reason == FinishNone {
				continue
			}
			s.current = StreamDelta{FinishReason: reason}
			return true
		}
	}
	return false
}

func (s *anthropicStream) Current() StreamDelta {
	return s.current
}

func (s *anthropicStream) Err() error {
	if err := s.stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream failed: %w", err)
	}
	return nil
}

func (s *anthropicStream) Close() error {
	return s.stream.Close()
}
