package validation

import (
	"fmt"
	"math"
	"strings"
)

// Metadata is the validated summary record stored after a successful run
type Metadata struct {
	Ticker           string
	QueryID          int64
	Summary          string
	KeyDecisions     string
	DataCompleteness float64
	ConfidenceScore  float64
}

// NewMetadata validates analysis metadata fields.
// Rejections: summary shorter than 50 characters, key decisions shorter than
// 20, either score outside [0,1]. Scores are rounded to 3 decimal places.
func NewMetadata(ticker string, queryID int64, summary, keyDecisions string, dataCompleteness, confidenceScore float64) (*Metadata, error) {
	ticker = strings.TrimSpace(ticker)
	if len(ticker) < 1 || len(ticker) > 10 {
		return nil, fmt.Errorf("ticker must be 1-10 characters")
	}

	summary = strings.TrimSpace(summary)
	if len(summary) < 50 {
		return nil, fmt.Errorf("summary must be at least 50 characters")
	}

	keyDecisions = strings.TrimSpace(keyDecisions)
	if len(keyDecisions) < 20 {
		return nil, fmt.Errorf("key decisions must be at least 20 characters")
	}

	if dataCompleteness < 0.0 || dataCompleteness > 1.0 {
		return nil, fmt.Errorf("scores must be between 0.0 and 1.0")
	}
	if confidenceScore < 0.0 || confidenceScore > 1.0 {
		return nil, fmt.Errorf("scores must be between 0.0 and 1.0")
	}

	return &Metadata{
		Ticker:           strings.ToUpper(ticker),
		QueryID:          queryID,
		Summary:          summary,
		KeyDecisions:     keyDecisions,
		DataCompleteness: round3(dataCompleteness),
		ConfidenceScore:  round3(confidenceScore),
	}, nil
}

// OverallQuality weights completeness at 60% and confidence at 40%
func (m *Metadata) OverallQuality() float64 {
	return m.DataCompleteness*0.6 + m.ConfidenceScore*0.4
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
