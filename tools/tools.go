// Package tools wraps the external data providers behind plain text
// adapters: market data, web search, page scraping and PDF extraction.
// Adapters retrieve and clean, they never analyze. Output is either
// indented JSON or cleaned prose, ready to drop into an LLM context.
package tools

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// userAgent is sent on every outbound request. Yahoo and most corporate
// sites reject requests without a browser identity.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxToolOutput caps adapter output so a single page or filing cannot
// blow past the LLM context window.
const maxToolOutput = 50000

// newHTTPClient builds the shared client used by all adapters
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// lookupError is the payload adapters return when a provider answers but
// has no data for the requested symbol. It flows into the pipeline as
// text instead of failing the run, so downstream analysis can mention it.
type lookupError struct {
	Error      string `json:"error"`
	Ticker     string `json:"ticker,omitempty"`
	Suggestion string `json:"suggestion"`
}

func lookupErrorJSON(message, ticker, suggestion string) string {
	data, err := json.MarshalIndent(lookupError{
		Error:      message,
		Ticker:     ticker,
		Suggestion: suggestion,
	}, "", "  ")
	if err != nil {
		return `{"error": "lookup failed"}`
	}
	return string(data)
}

// truncate caps s at max characters, appending a marker when content was cut
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("\n\n[... Content truncated at %d characters ...]", max)
}
