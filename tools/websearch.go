package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const serperEndpoint = "https://google.serper.dev/search"

// WebSearch queries the Serper search API. Requires SERPER_API_KEY.
type WebSearch struct {
	client         *http.Client
	apiKey         string
	endpoint       string
	maxCompetitors int
	maxNewsItems   int
}

// NewWebSearch creates a search adapter. maxCompetitors and maxNewsItems
// cap the results returned per query for the two canned search sets.
func NewWebSearch(apiKey string, maxCompetitors, maxNewsItems int) *WebSearch {
	if maxCompetitors <= 0 {
		maxCompetitors = 7
	}
	if maxNewsItems <= 0 {
		maxNewsItems = 10
	}
	return &WebSearch{
		client:         newHTTPClient(30 * time.Second),
		apiKey:         apiKey,
		endpoint:       serperEndpoint,
		maxCompetitors: maxCompetitors,
		maxNewsItems:   maxNewsItems,
	}
}

type searchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
}

type serperResponse struct {
	Organic []searchResult `json:"organic"`
}

// Search runs a single query and renders the organic results as
// numbered title/URL/snippet blocks.
func (w *WebSearch) Search(ctx context.Context, query string, limit int) (string, error) {
	results, err := w.search(ctx, query, limit)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	renderResults(&sb, query, results)
	return sb.String(), nil
}

// SearchCompetitors runs the competitor discovery query set for a company
// and returns the merged results, deduplicated by URL.
func (w *WebSearch) SearchCompetitors(ctx context.Context, companyName string) (string, error) {
	queries := []string{
		fmt.Sprintf("%s competitors", companyName),
		fmt.Sprintf("%s vs", companyName),
		fmt.Sprintf("%s market share", companyName),
	}
	return w.searchSet(ctx, queries, w.maxCompetitors)
}

// SearchNews runs the news query set for a company and ticker
func (w *WebSearch) SearchNews(ctx context.Context, companyName, ticker string) (string, error) {
	queries := []string{
		fmt.Sprintf("%s news", companyName),
		fmt.Sprintf("%s stock news", ticker),
		fmt.Sprintf("%s earnings", companyName),
		fmt.Sprintf("%s CEO", companyName),
	}
	return w.searchSet(ctx, queries, w.maxNewsItems)
}

// searchSet runs each query in order and renders one section per query.
// URLs already seen in an earlier section are skipped.
func (w *WebSearch) searchSet(ctx context.Context, queries []string, perQuery int) (string, error) {
	var sb strings.Builder
	seen := make(map[string]bool)

	for _, query := range queries {
		results, err := w.search(ctx, query, perQuery)
		if err != nil {
			return "", err
		}

		fresh := results[:0]
		for _, r := range results {
			if r.Link != "" && seen[r.Link] {
				continue
			}
			seen[r.Link] = true
			fresh = append(fresh, r)
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		renderResults(&sb, query, fresh)
	}

	return sb.String(), nil
}

func (w *WebSearch) search(ctx context.Context, query string, limit int) ([]searchResult, error) {
	if w.apiKey == "" {
		return nil, fmt.Errorf("web search is not configured: SERPER_API_KEY is missing")
	}
	if limit <= 0 {
		limit = 10
	}

	payload := map[string]any{
		"q":   query,
		"num": limit,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", w.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	if len(parsed.Organic) > limit {
		parsed.Organic = parsed.Organic[:limit]
	}
	return parsed.Organic, nil
}

func renderResults(sb *strings.Builder, query string, results []searchResult) {
	fmt.Fprintf(sb, "Results for %q:\n", query)
	if len(results) == 0 {
		sb.WriteString("No results found.\n")
		return
	}
	for i, r := range results {
		fmt.Fprintf(sb, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(sb, "   %s\n", r.Link)
		if r.Snippet != "" {
			fmt.Fprintf(sb, "   %s\n", r.Snippet)
		}
		if r.Date != "" {
			fmt.Fprintf(sb, "   (%s)\n", r.Date)
		}
	}
}
