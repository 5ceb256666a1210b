package openrouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient points a client at a test server. Returns the client;
// the server is cleaned up with the test.
func newTestClient(t *testing.T, handler http.HandlerFunc, reasoning ReasoningSettings) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient("test-key", "test/model", 0.7, 256, reasoning)
	c.SetAPIURL(srv.URL)
	return c
}

func completionBody(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return body
}

func transcript(extra int) []Message {
	msgs := []Message{{Role: "system", Content: "prompt"}}
	for i := 0; i < extra; i++ {
		msgs = append(msgs, Message{Role: "user", Content: "hi"})
	}
	return msgs
}

func TestChatSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong auth header: %q", r.Header.Get("Authorization"))
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req["model"] != "test/model" {
			t.Errorf("expected model test/model, got %v", req["model"])
		}
		if _, ok := req["reasoning"]; ok {
			t.Error("reasoning block must be absent when disabled")
		}
		w.Write(completionBody("hello there"))
	}, ReasoningSettings{})

	got, err := c.Chat(transcript(2), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello there" {
		t.Errorf("expected 'hello there', got %q", got)
	}
}

func TestChatRetriesOnContextLength(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"maximum context length exceeded"}`))
			return
		}
		w.Write(completionBody("recovered"))
	}, ReasoningSettings{})

	truncations := 0
	truncate := func() []Message {
		truncations++
		return transcript(5 - truncations)
	}

	got, err := c.Chat(transcript(5), truncate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Errorf("expected 'recovered', got %q", got)
	}
	if truncations != 2 {
		t.Errorf("expected 2 truncations, got %d", truncations)
	}
	if calls != 3 {
		t.Errorf("expected 3 requests, got %d", calls)
	}
}

func TestChatNoCallbackPropagatesContextError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("input tokens exceed limit"))
	}, ReasoningSettings{})

	_, err := c.Chat(transcript(3), nil)
	var ctxErr *ContextLengthError
	if !errors.As(err, &ctxErr) {
		t.Fatalf("expected ContextLengthError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry without a callback, got %d requests", calls)
	}
}

func TestChatSystemPromptAloneTooLarge(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("context too long"))
	}, ReasoningSettings{})

	truncations := 0
	truncate := func() []Message {
		truncations++
		return transcript(0) // system message only
	}

	_, err := c.Chat(transcript(3), truncate)
	if !errors.Is(err, ErrRecoveryExhausted) {
		t.Fatalf("expected ErrRecoveryExhausted, got %v", err)
	}
	if truncations != 1 {
		t.Errorf("expected exactly 1 truncation, got %d", truncations)
	}
	// Attempt one fails, the retry fails, then the size check gives up
	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
}

func TestChatAttemptCap(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("maximum context length exceeded"))
	}, ReasoningSettings{})

	// Callback never shrinks below 2 messages, so only the attempt cap
	// stops the loop
	truncate := func() []Message { return transcript(1) }

	_, err := c.Chat(transcript(5), truncate)
	if !errors.Is(err, ErrRecoveryExhausted) {
		t.Fatalf("expected ErrRecoveryExhausted, got %v", err)
	}
	if calls != 10 {
		t.Errorf("expected 10 attempts, got %d", calls)
	}
}

func TestChatNonContextErrorNoRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream unavailable"))
	}, ReasoningSettings{})

	_, err := c.Chat(transcript(3), func() []Message { return transcript(1) })
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.StatusCode)
	}
	if calls != 1 {
		t.Errorf("expected 1 request, got %d", calls)
	}
}

func TestChat400WithoutKeywordIsGenericError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed request body"))
	}, ReasoningSettings{})

	_, err := c.Chat(transcript(3), func() []Message { return transcript(1) })
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestReasoningEffortTakesPrecedence(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reasoning struct {
				Effort    string `json:"effort"`
				MaxTokens int    `json:"max_tokens"`
				Exclude   bool   `json:"exclude"`
			} `json:"reasoning"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.Reasoning.Effort != "high" {
			t.Errorf("expected effort high, got %q", req.Reasoning.Effort)
		}
		if req.Reasoning.MaxTokens != 0 {
			t.Errorf("max_tokens must be omitted when effort is set, got %d", req.Reasoning.MaxTokens)
		}
		if !req.Reasoning.Exclude {
			t.Error("expected exclude true")
		}
		w.Write(completionBody("ok"))
	}, ReasoningSettings{Enabled: true, Effort: "high", MaxTokens: 500, Exclude: true})

	if _, err := c.Chat(transcript(1), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPickEmojiSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages  []map[string]any `json:"messages"`
			MaxTokens int              `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.MaxTokens != 16 {
			t.Errorf("expected max_tokens 16, got %d", req.MaxTokens)
		}
		// Message text is embedded raw, in plain double quotes
		userContent, _ := req.Messages[1]["content"].(string)
		if !strings.Contains(userContent, `Message from alice: "that was "great""`) {
			t.Errorf("prompt must embed the raw message text: %q", userContent)
		}
		w.Write(completionBody(" 🔥 "))
	}, ReasoningSettings{})

	emoji, ok := c.PickEmoji(`that was "great"`, "alice", []string{"😂", "🔥"}, 16)
	if !ok {
		t.Fatal("expected ok")
	}
	if emoji != "🔥" {
		t.Errorf("expected trimmed emoji, got %q", emoji)
	}
}

func TestPickEmojiSwallowsFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, ReasoningSettings{})

	if _, ok := c.PickEmoji("hey", "alice", []string{"😂"}, 16); ok {
		t.Error("expected failure to be swallowed")
	}
}

func TestMessageMarshalMultimodal(t *testing.T) {
	plain, err := json.Marshal(Message{Role: "user", Content: "hi"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(plain) != `{"role":"user","content":"hi"}` {
		t.Errorf("plain message marshalled wrong: %s", plain)
	}

	multi, err := json.Marshal(Message{Role: "user", Content: "look", Images: []string{"https://cdn/x.png"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"role":"user","content":[{"type":"text","text":"look"},{"type":"image_url","image_url":{"url":"https://cdn/x.png"}}]}`
	if string(multi) != want {
		t.Errorf("multimodal message marshalled wrong:\n got %s\nwant %s", multi, want)
	}
}
