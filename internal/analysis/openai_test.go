package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testOpenAIClient(srv *httptest.Server) *OpenAIClient {
	return &OpenAIClient{apiKey: "test-key", baseURL: srv.URL, model: "gpt-4o-mini", client: srv.Client()}
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Temperature != 0.7 || req.MaxTokens != 1000 {
			t.Errorf("options not forwarded: temp=%v max=%d", req.Temperature, req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"  hello  "}}]}`)
	}))
	defer srv.Close()

	out, err := testOpenAIClient(srv).Complete(context.Background(), "prompt", CompletionOptions{
		SystemPrompt: "system",
		Temperature:  0.7,
		MaxTokens:    1000,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "hello" {
		t.Fatalf("content = %q, want trimmed hello", out)
	}
}

func TestOpenAICompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limit"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testOpenAIClient(srv).Complete(context.Background(), "prompt", CompletionOptions{})
	var apiErr *ExternalAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want ExternalAPIError", err)
	}
	if !apiErr.RateLimited() {
		t.Fatalf("status %d not reported as rate limited", apiErr.Status)
	}
}

func TestOpenAICompleteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"{\\\"a\\\":\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"1}\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	var pieces []string
	out, err := testOpenAIClient(srv).CompleteStream(context.Background(), "prompt", CompletionOptions{}, func(piece string) {
		pieces = append(pieces, piece)
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if out != `{"a":1}` {
		t.Fatalf("assembled output = %q", out)
	}
	if len(pieces) != 2 {
		t.Fatalf("onDelta called %d times, want 2", len(pieces))
	}
}

func TestOpenAISearchFlatOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Type != "web_search_preview" {
			t.Errorf("web search tool missing: %+v", req.Tools)
		}
		if !strings.HasPrefix(req.Input, "system\n\n") {
			t.Errorf("system prompt not prepended to input: %q", req.Input)
		}
		fmt.Fprint(w, `{"output_text":"flat answer"}`)
	}))
	defer srv.Close()

	out, err := testOpenAIClient(srv).Search(context.Background(), "prompt", CompletionOptions{SystemPrompt: "system"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != "flat answer" {
		t.Fatalf("output = %q", out)
	}
}

func TestOpenAISearchItemOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output":[
			{"type":"web_search_call"},
			{"type":"message","content":[{"type":"output_text","text":"part one "},{"type":"output_text","text":"part two"}]}
		]}`)
	}))
	defer srv.Close()

	out, err := testOpenAIClient(srv).Search(context.Background(), "prompt", CompletionOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if out != "part one part two" {
		t.Fatalf("output = %q", out)
	}
}

func TestOpenAISearchEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output":[]}`)
	}))
	defer srv.Close()

	_, err := testOpenAIClient(srv).Search(context.Background(), "prompt", CompletionOptions{})
	var apiErr *ExternalAPIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want ExternalAPIError", err)
	}
}

func TestPerplexityComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "sonar" {
			t.Errorf("model = %q, want sonar", req.Model)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"narrative"}}]}`)
	}))
	defer srv.Close()

	c := &PerplexityClient{apiKey: "k", baseURL: srv.URL, model: "sonar", client: srv.Client()}
	out, err := c.Complete(context.Background(), "prompt", CompletionOptions{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "narrative" {
		t.Fatalf("output = %q", out)
	}
}
