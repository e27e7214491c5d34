// Package notifications posts analysis lifecycle events to configured
// webhook URLs.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"business-analyst/helpers"
)

// Notifier delivers analysis webhooks. Delivery is fire-and-forget:
// a failing endpoint is logged and never affects the analysis result.
type Notifier struct {
	urls   []string
	client *http.Client
}

type completionPayload struct {
	Event       string    `json:"event"`
	Ticker      string    `json:"ticker"`
	QueryID     int64     `json:"query_id"`
	WordCount   int       `json:"word_count"`
	CompletedAt time.Time `json:"completed_at"`
	DurationSec float64   `json:"duration_seconds"`
	Message     string    `json:"message"`
}

type failurePayload struct {
	Event    string    `json:"event"`
	Ticker   string    `json:"ticker"`
	QueryID  int64     `json:"query_id"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Message  string    `json:"message"`
}

// NewNotifier creates a notifier for the given webhook URLs. An empty
// list yields a notifier that does nothing.
func NewNotifier(urls []string) *Notifier {
	return &Notifier{
		urls:   urls,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// AnalysisCompleted announces a finished run to every configured URL
func (n *Notifier) AnalysisCompleted(ticker string, queryID int64, wordCount int, duration time.Duration) {
	if n == nil || len(n.urls) == 0 {
		return
	}

	payload := completionPayload{
		Event:       "analysis.completed",
		Ticker:      ticker,
		QueryID:     queryID,
		WordCount:   wordCount,
		CompletedAt: time.Now().UTC(),
		DurationSec: duration.Seconds(),
		Message: fmt.Sprintf("📊 ANALYSIS READY! %s | %s words | completed in %s",
			ticker, helpers.FormatCount(wordCount), duration.Round(time.Second)),
	}

	n.broadcast(payload)
}

// AnalysisFailed announces a failed run to every configured URL.
func (n *Notifier) AnalysisFailed(ticker string, queryID int64, cause error) {
	if n == nil || len(n.urls) == 0 {
		return
	}

	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	payload := failurePayload{
		Event:    "analysis.failed",
		Ticker:   ticker,
		QueryID:  queryID,
		Error:    reason,
		FailedAt: time.Now().UTC(),
		Message:  fmt.Sprintf("❌ ANALYSIS FAILED! %s | %s", ticker, reason),
	}

	n.broadcast(payload)
}

func (n *Notifier) broadcast(payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️ Failed to marshal webhook payload: %v", err)
		return
	}

	for _, url := range n.urls {
		go n.deliver(url, body)
	}
}

func (n *Notifier) deliver(url string, payload []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Printf("⚠️ Invalid webhook URL %s: %v", url, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Business-Analyst-Webhook/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("⚠️ Webhook delivery to %s failed: %v", url, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ Webhook %s answered status %d", url, resp.StatusCode)
		return
	}
	log.Printf("🔔 Webhook delivered to %s", url)
}
