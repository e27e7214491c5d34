package llm

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

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, "test-key", "llama3.2")
}

func TestComplete(t *testing.T) {
	var captured ChatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "Apple designs consumer electronics."}},
			},
		})
	})

	got, err := client.Complete(context.Background(), "You are an analyst.", "Describe Apple.", Options{Temperature: 0.5})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Apple designs consumer electronics." {
		t.Errorf("answer = %q", got)
	}

	if captured.Model != "llama3.2" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.Temperature != 0.5 {
		t.Errorf("temperature = %v", captured.Temperature)
	}
	if len(captured.Messages) != 2 ||
		captured.Messages[0].Role != "system" || captured.Messages[0].Content != "You are an analyst." ||
		captured.Messages[1].Role != "user" || captured.Messages[1].Content != "Describe Apple." {
		t.Errorf("messages = %+v", captured.Messages)
	}
	if captured.Stream {
		t.Error("non-streaming request must not set stream")
	}
}

func TestChatCompletionAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if err == nil || !strings.Contains(err.Error(), "API error 404") {
		t.Errorf("err = %v, want API error 404", err)
	}
}

func TestChatCompletionNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if err == nil || !strings.Contains(err.Error(), "no response choices") {
		t.Errorf("err = %v, want no response choices", err)
	}
}

func TestCompleteStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("streaming request must set stream")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Eco", "nomic ", "moats."} {
			fmt.Fprintf(w, `data: {"choices":[{"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var got []string
	err := client.CompleteStream(context.Background(), "sys", "question", Options{}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("CompleteStream: %v", err)
	}
	if strings.Join(got, "") != "Economic moats." {
		t.Errorf("chunks = %v", got)
	}
	if len(got) != 3 {
		t.Errorf("chunk count = %d, want 3", len(got))
	}
}

func TestCompleteStreamCallbackError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"first"},"finish_reason":null}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"second"},"finish_reason":null}]}`+"\n\n")
	})

	calls := 0
	err := client.CompleteStream(context.Background(), "sys", "question", Options{}, func(string) error {
		calls++
		return errors.New("client gone")
	})
	if err == nil || !strings.Contains(err.Error(), "callback error") {
		t.Errorf("err = %v, want callback error", err)
	}
	if calls != 1 {
		t.Errorf("callback calls = %d, want 1 (stream must stop)", calls)
	}
}

func TestPing(t *testing.T) {
	healthy := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %s, want /v1/models", r.URL.Path)
		}
		w.Write([]byte(`{"data":[]}`))
	})
	if err := healthy.Ping(context.Background()); err != nil {
		t.Errorf("healthy ping: %v", err)
	}

	unhealthy := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	})
	if err := unhealthy.Ping(context.Background()); err == nil {
		t.Error("unhealthy ping should fail")
	}

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()
	if err := NewClient(downURL, "", "llama3.2").Ping(context.Background()); err == nil {
		t.Error("unreachable ping should fail")
	}
}

func TestModel(t *testing.T) {
	if got := NewClient("http://localhost:11434", "", "llama3.2").Model(); got != "llama3.2" {
		t.Errorf("Model() = %q", got)
	}
}
