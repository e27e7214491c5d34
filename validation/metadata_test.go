package validation

import (
	"strings"
	"testing"
)

const (
	validSummary   = "Apple posted record revenue with expanding services margins and steady iPhone demand."
	validDecisions = "Senior Financial Analyst: completed financial analysis."
)

func TestNewMetadata(t *testing.T) {
	meta, err := NewMetadata(" aapl ", 42, validSummary, validDecisions, 0.8567, 0.91234)
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}

	if meta.Ticker != "AAPL" {
		t.Errorf("ticker = %q, want AAPL", meta.Ticker)
	}
	if meta.QueryID != 42 {
		t.Errorf("query id = %d, want 42", meta.QueryID)
	}
	if meta.DataCompleteness != 0.857 {
		t.Errorf("data completeness = %v, want 0.857", meta.DataCompleteness)
	}
	if meta.ConfidenceScore != 0.912 {
		t.Errorf("confidence = %v, want 0.912", meta.ConfidenceScore)
	}
}

func TestNewMetadataRejections(t *testing.T) {
	tests := []struct {
		name         string
		ticker       string
		summary      string
		decisions    string
		completeness float64
		confidence   float64
		wantErr      string
	}{
		{"empty ticker", "", validSummary, validDecisions, 0.5, 0.5, "ticker must be 1-10 characters"},
		{"short summary", "AAPL", "Too short.", validDecisions, 0.5, 0.5, "summary must be at least 50 characters"},
		{"short decisions", "AAPL", validSummary, "brief", 0.5, 0.5, "key decisions must be at least 20 characters"},
		{"negative completeness", "AAPL", validSummary, validDecisions, -0.1, 0.5, "between 0.0 and 1.0"},
		{"confidence above one", "AAPL", validSummary, validDecisions, 0.5, 1.1, "between 0.0 and 1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetadata(tt.ticker, 1, tt.summary, tt.decisions, tt.completeness, tt.confidence)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestOverallQuality(t *testing.T) {
	meta, err := NewMetadata("AAPL", 1, validSummary, validDecisions, 1.0, 0.5)
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	if got := meta.OverallQuality(); !almostEqual(got, 0.8) {
		t.Errorf("overall quality = %v, want 0.8", got)
	}
}
