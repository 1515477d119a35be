package llm

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestHTTPClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn}
}

func newTestHTTPResponse(req *http.Request, status int, contentType, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
	if contentType != "" {
		resp.Header.Set("Content-Type", contentType)
	}
	return resp
}

// capturingServer answers every request with one canned body and keeps the
// decoded JSON payloads it received.
type capturingServer struct {
	mu          sync.Mutex
	status      int
	contentType string
	body        string
	paths       []string
	payloads    []map[string]any
}

func (s *capturingServer) client(t *testing.T) *http.Client {
	t.Helper()
	return newTestHTTPClient(func(req *http.Request) (*http.Response, error) {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		var payload map[string]any
		if len(bytes.TrimSpace(raw)) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				t.Errorf("request body is not JSON: %v", err)
			}
		}

		s.mu.Lock()
		s.paths = append(s.paths, req.URL.Path)
		s.payloads = append(s.payloads, payload)
		s.mu.Unlock()

		status := s.status
		if status == 0 {
			status = http.StatusOK
		}
		return newTestHTTPResponse(req, status, s.contentType, s.body), nil
	})
}

func (s *capturingServer) lastPayload(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.payloads) == 0 {
		t.Fatal("no request captured")
	}
	return s.payloads[len(s.payloads)-1]
}

func sse(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		b.WriteString(e)
		b.WriteString("\n\n")
	}
	return b.String()
}
