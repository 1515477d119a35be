// Package llmtest provides a scripted llm.Client for engine tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dimslaev/ai-chat/internal/llm"
)

// Reply scripts one non-streaming Complete call.
type Reply struct {
	Response *llm.CompletionResponse
	Err      error
}

// StreamScript scripts one Stream call.
type StreamScript struct {
	Deltas []llm.StreamDelta
	// Err is returned by Err after all deltas were yielded.
	Err error
	// OpenErr fails the Stream call itself.
	OpenErr error
	// BeforeDelta runs before delta i is yielded.
	BeforeDelta func(i int)
}

// Client replays scripted replies in order and records every request.
type Client struct {
	mu       sync.Mutex
	replies  []Reply
	streams  []StreamScript
	requests []Recorded
}

// Recorded is a request as seen by the client.
type Recorded struct {
	Streaming bool
	Request   llm.CompletionRequest
}

func New() *Client {
	return &Client{}
}

// OnComplete queues replies for Complete.
func (c *Client) OnComplete(replies ...Reply) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
	return c
}

// OnStream queues scripts for Stream.
func (c *Client) OnStream(scripts ...StreamScript) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streams = append(c.streams, scripts...)
	return c
}

// Text is a convenience script that streams the given chunks and ends with reason.
func Text(reason llm.FinishReason, chunks ...string) StreamScript {
	script := StreamScript{}
	for i, chunk := range chunks {
		delta := llm.StreamDelta{Text: chunk}
		if i == len(chunks)-1 {
			delta.FinishReason = reason
		}
		script.Deltas = append(script.Deltas, delta)
	}
	return script
}

// Requests returns copies of all recorded requests.
func (c *Client) Requests() []Recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Recorded(nil), c.requests...)
}

// CompleteCalls counts non-streaming calls.
func (c *Client) CompleteCalls() int {
	n := 0
	for _, r := range c.Requests() {
		if !r.Streaming {
			n++
		}
	}
	return n
}

// StreamCalls counts streaming calls.
func (c *Client) StreamCalls() int {
	n := 0
	for _, r := range c.Requests() {
		if r.Streaming {
			n++
		}
	}
	return n
}

func (c *Client) record(streaming bool, req *llm.CompletionRequest) {
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	c.requests = append(c.requests, Recorded{Streaming: streaming, Request: cp})
}

func (c *Client) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	c.record(false, req)
	if len(c.replies) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("llmtest: unexpected Complete call")
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reply.Response, reply.Err
}

func (c *Client) Stream(ctx context.Context, req *llm.CompletionRequest) (llm.Stream, error) {
	c.mu.Lock()
	c.record(true, req)
	if len(c.streams) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("llmtest: unexpected Stream call")
	}
	script := c.streams[0]
	c.streams = c.streams[1:]
	c.mu.Unlock()

	if script.OpenErr != nil {
		return nil, script.OpenErr
	}
	return &stream{ctx: ctx, script: script, pos: -1}, nil
}

func (c *Client) GetModelName() string {
	return "scripted"
}

func (c *Client) Provider() llm.Provider {
	return llm.ProviderOpenAI
}

type stream struct {
	ctx    context.Context
	script StreamScript
	pos    int
	err    error
}

func (s *stream) Next() bool {
	if s.err != nil {
		return false
	}
	next := s.pos + 1
	if next < len(s.script.Deltas) && s.script.BeforeDelta != nil {
		s.script.BeforeDelta(next)
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if next >= len(s.script.Deltas) {
		s.err = s.script.Err
		return false
	}
	s.pos = next
	return true
}

func (s *stream) Current() llm.StreamDelta {
	return s.script.Deltas[s.pos]
}

func (s *stream) Err() error {
	return s.err
}

func (s *stream) Close() error {
	return nil
}
