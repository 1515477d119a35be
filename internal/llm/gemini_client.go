package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const geminiDefaultModel = "gemini-2.5-flash"

// GeminiClient implements Client using Google's genai SDK.
type GeminiClient struct {
	client    *genai.Client
	model     string
	maxTokens int
}

// NewGeminiClient constructs a client for the Gemini API.
func NewGeminiClient(opts Options) (*GeminiClient, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("gemini client requires an API key")
	}

	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client init failed: %w", err)
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}

	return &GeminiClient{client: client, model: model, maxTokens: opts.MaxTokens}, nil
}

func (c *GeminiClient) GetModelName() string {
	return c.model
}

func (c *GeminiClient) Provider() Provider {
	return ProviderGemini
}

func (c *GeminiClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	contents, cfg, err := convertRequestToGemini(req, c.maxTokens)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, modelFor(req, c.model), contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini completion failed: %w", err)
	}

	out := &CompletionResponse{FinishReason: FinishStop}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return out, nil
	}

	candidate := resp.Candidates[0]
	out.FinishReason = NormalizeFinishReason(string(candidate.FinishReason))
	out.Content = geminiText(candidate)

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.FunctionCall == nil {
				continue
			}
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("gemini function call %s: %w", part.FunctionCall.Name, err)
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: string(args)})
		}
	}
	if len(out.ToolCalls) > 0 && out.FinishReason == FinishStop {
		out.FinishReason = FinishToolCalls
	}
	return out, nil
}

func (c *GeminiClient) Stream(ctx context.Context, req *CompletionRequest) (Stream, error) {
	contents, cfg, err := convertRequestToGemini(req, c.maxTokens)
	if err != nil {
		return nil, err
	}

	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, modelFor(req, c.model), contents, cfg))
	return &geminiStream{next: next, stop: stop}, nil
}

type geminiStream struct {
	next    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	current StreamDelta
	err     error
}

func (s *geminiStream) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		resp, err, ok := s.next()
		if !ok {
			return false
		}
		if err != nil {
			s.err = err
			return false
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
			continue
		}

		candidate := resp.Candidates[0]
		delta := StreamDelta{
			Text:         geminiText(candidate),
			FinishReason: NormalizeFinishReason(string(candidate.FinishReason)),
		}
		if delta.Text == "" && delta.FinishReason == FinishNone {
			continue
		}
		s.current = delta
		return true
	}
}

func (s *geminiStream) Current() StreamDelta {
	return s.current
}

func (s *geminiStream) Err() error {
	if s.err != nil {
		return fmt.Errorf("gemini stream failed: %w", s.err)
	}
	return nil
}

func (s *geminiStream) Close() error {
	s.stop()
	return nil
}

func geminiText(candidate *genai.Candidate) string {
	if candidate == nil || candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
