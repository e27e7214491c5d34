package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testWebSearch(srv *httptest.Server) *WebSearch {
	return &WebSearch{
		client:         srv.Client(),
		apiKey:         "test-key",
		endpoint:       srv.URL,
		maxCompetitors: 7,
		maxNewsItems:   10,
	}
}

func TestSearchRequiresAPIKey(t *testing.T) {
	w := NewWebSearch("", 7, 10)

	_, err := w.Search(context.Background(), "anything", 5)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "SERPER_API_KEY") {
		t.Errorf("error should name the missing key, got %v", err)
	}
}

func TestSearchRendersResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing X-API-KEY header")
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["q"] != "Apple competitors" {
			t.Errorf("unexpected query %v", req["q"])
		}
		json.NewEncoder(w).Encode(serperResponse{Organic: []searchResult{
			{Title: "Top Apple Competitors", Link: "https://example.com/a", Snippet: "Samsung, Google and more"},
			{Title: "Apple vs Samsung", Link: "https://example.com/b", Snippet: "Comparison"},
		}})
	}))
	defer srv.Close()

	ws := testWebSearch(srv)

	out, err := ws.Search(context.Background(), "Apple competitors", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, `Results for "Apple competitors":`) {
		t.Errorf("missing query header in output:\n%s", out)
	}
	if !strings.Contains(out, "1. Top Apple Competitors") {
		t.Errorf("missing numbered result in output:\n%s", out)
	}
	if !strings.Contains(out, "https://example.com/a") {
		t.Errorf("missing result URL in output:\n%s", out)
	}
}

func TestSearchCompetitorsDeduplicates(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Same result for every query: only the first section should list it
		json.NewEncoder(w).Encode(serperResponse{Organic: []searchResult{
			{Title: "Acme Rivals", Link: "https://example.com/same", Snippet: "Rivals list"},
		}})
	}))
	defer srv.Close()

	ws := testWebSearch(srv)

	out, err := ws.SearchCompetitors(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 3 {
		t.Errorf("expected 3 competitor queries, got %d", calls)
	}
	if got := strings.Count(out, "https://example.com/same"); got != 1 {
		t.Errorf("duplicate URL should appear once, got %d occurrences", got)
	}
	for _, q := range []string{"Acme competitors", "Acme vs", "Acme market share"} {
		if !strings.Contains(out, q) {
			t.Errorf("missing section for query %q", q)
		}
	}
}

func TestSearchNewsQueries(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		queries = append(queries, req["q"].(string))
		json.NewEncoder(w).Encode(serperResponse{})
	}))
	defer srv.Close()

	ws := testWebSearch(srv)

	if _, err := ws.SearchNews(context.Background(), "Apple", "AAPL"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"Apple news", "AAPL stock news", "Apple earnings", "Apple CEO"}
	if len(queries) != len(expected) {
		t.Fatalf("expected %d queries, got %d", len(expected), len(queries))
	}
	for i, q := range expected {
		if queries[i] != q {
			t.Errorf("query %d: expected %q, got %q", i, q, queries[i])
		}
	}
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ws := testWebSearch(srv)
	ws.client.Timeout = 5 * time.Second

	_, err := ws.Search(context.Background(), "anything", 5)
	if err == nil {
		t.Fatal("expected error for failing provider")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code, got %v", err)
	}
}
