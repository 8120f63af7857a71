package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func chatJSON(content string) string {
	return fmt.Sprintf(`{"choices":[{"message":{"content":%q},"finish_reason":"stop"}]}`, content)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("test-key", "test-model", Options{BaseURL: srv.URL}, slog.Default())
	return c, srv
}

func TestGenerate(t *testing.T) {
	var gotReq chatRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		fmt.Fprint(w, chatJSON("  hello world \n"))
	})

	got, err := c.Generate(context.Background(), "be nice", "hi", GenerateOptions{Temperature: 0.9, MaxTokens: 300})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("expected trimmed content, got %q", got)
	}

	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", gotReq.Messages)
	}
	if gotReq.Temperature != 0.9 || gotReq.MaxTokens != 300 {
		t.Errorf("options not forwarded: %+v", gotReq)
	}
}

func TestGenerateRetriesOn5xx(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, chatJSON("second try"))
	})

	got, err := c.Generate(context.Background(), "", "hi", GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "second try" {
		t.Errorf("got %q", got)
	}
	if calls.Load() != 2 {
		t.Errorf("expected exactly 2 calls, got %d", calls.Load())
	}
}

func TestGenerateNoRetryOn4xx(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	if _, err := c.Generate(context.Background(), "", "hi", GenerateOptions{}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d calls", calls.Load())
	}
}

func TestGenerateRetryExhausted(t *testing.T) {
	var calls atomic.Int64
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	})

	if _, err := c.Generate(context.Background(), "", "hi", GenerateOptions{}); err == nil {
		t.Fatal("expected error after retry exhausted")
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestGenerateMissingKey(t *testing.T) {
	c := New("", "test-model", Options{BaseURL: "http://127.0.0.1:1"}, slog.Default())
	if _, err := c.Generate(context.Background(), "", "hi", GenerateOptions{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestClassify(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatJSON(`{"group":"greeting","confidence":0.92}`))
	})

	got, err := c.Classify(context.Background(), []string{"greeting", "thanks"}, "hello!")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Group != "greeting" || got.Confidence != 0.92 {
		t.Errorf("unexpected classification: %+v", got)
	}
}

func TestClassifyCodeFenced(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatJSON("```json\n{\"group\":\"thanks\",\"confidence\":0.8}\n```"))
	})

	got, err := c.Classify(context.Background(), []string{"thanks"}, "thx")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if got.Group != "thanks" {
		t.Errorf("unexpected classification: %+v", got)
	}
}

func TestClassifyMalformed(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, chatJSON("I think it's a greeting"))
	})

	if _, err := c.Classify(context.Background(), []string{"greeting"}, "hi"); err == nil {
		t.Fatal("expected error for non-JSON classifier output")
	}
}
