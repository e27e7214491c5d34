// Package validation scores generated reports for section presence and
// markdown structure.
//
// Both scores are keyword/pattern heuristics, not semantic checks: a report
// that merely contains the right headers scores high regardless of content
// quality. This is a known limitation of the design, kept deliberately.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Report types accepted by the validator
const (
	ReportTypeFull  = "Full Analysis"
	ReportTypeQuick = "Quick Analysis"
)

// requiredSections are matched case-insensitively against headers or bold text
var requiredSections = []string{
	"executive summary",
	"company overview",
	"financial analysis",
	"key takeaways",
}

var (
	headerRe     = regexp.MustCompile(`(?m)^#{1,3}\s+`)
	headerNameRe = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
	bulletRe     = regexp.MustCompile(`(?m)^[-*+]\s+`)
	numberRe     = regexp.MustCompile(`\d+[.,]\d+|\d+%|\$\d+`)
)

// ReportValidation carries the scored verdict on one report
type ReportValidation struct {
	Ticker            string
	CompanyName       string
	ReportContent     string
	ReportType        string
	WordCount         int
	SectionsFound     []string
	CompletenessScore float64
	StructureScore    float64
}

// ValidateReport checks a generated report and computes its scores.
// Rejections: content shorter than 100 characters after trimming, ticker
// length outside [1,10], unknown report type.
func ValidateReport(ticker, companyName, reportContent, reportType string) (*ReportValidation, error) {
	ticker = strings.TrimSpace(ticker)
	if len(ticker) < 1 || len(ticker) > 10 {
		return nil, fmt.Errorf("ticker must be 1-10 characters")
	}

	content := strings.TrimSpace(reportContent)
	if len(content) < 100 {
		return nil, fmt.Errorf("report content must be at least 100 characters")
	}

	if reportType != ReportTypeFull && reportType != ReportTypeQuick {
		return nil, fmt.Errorf("report type must be one of: [%s %s]", ReportTypeFull, ReportTypeQuick)
	}

	v := &ReportValidation{
		Ticker:        strings.ToUpper(ticker),
		CompanyName:   companyName,
		ReportContent: content,
		ReportType:    reportType,
		WordCount:     len(strings.Fields(content)),
	}
	v.SectionsFound = extractSections(content)
	v.CompletenessScore = v.calculateCompleteness()
	v.StructureScore = v.calculateStructure()

	return v, nil
}

// calculateCompleteness scores required-section presence plus a word-count
// bonus: 0.5 base, +0.125 per section found, +0.1 for 800-1200 words
// (+0.05 for >=500), capped at 1.0.
func (v *ReportValidation) calculateCompleteness() float64 {
	contentLower := strings.ToLower(v.ReportContent)

	found := 0
	for _, section := range requiredSections {
		patterns := []string{
			"## " + section,
			"# " + section,
			"**" + section + "**",
			strings.ReplaceAll(section, " ", ""),
		}
		for _, pattern := range patterns {
			if strings.Contains(contentLower, pattern) {
				found++
				break
			}
		}
	}

	score := 0.5
	score += float64(found) * 0.125

	if v.WordCount >= 800 && v.WordCount <= 1200 {
		score += 0.1
	} else if v.WordCount >= 500 {
		score += 0.05
	}

	return math.Min(score, 1.0)
}

// calculateStructure scores markdown richness: headers (>=3: 0.4, >=1: 0.2),
// bullet lines (>=5: 0.3, >=2: 0.15), numeric tokens (>=10: 0.3, >=5: 0.15),
// capped at 1.0.
func (v *ReportValidation) calculateStructure() float64 {
	score := 0.0

	headers := len(headerRe.FindAllString(v.ReportContent, -1))
	if headers >= 3 {
		score += 0.4
	} else if headers >= 1 {
		score += 0.2
	}

	bullets := len(bulletRe.FindAllString(v.ReportContent, -1))
	if bullets >= 5 {
		score += 0.3
	} else if bullets >= 2 {
		score += 0.15
	}

	numbers := len(numberRe.FindAllString(v.ReportContent, -1))
	if numbers >= 10 {
		score += 0.3
	} else if numbers >= 5 {
		score += 0.15
	}

	return math.Min(score, 1.0)
}

// extractSections lists all markdown header names, trimmed and lowercased
func extractSections(content string) []string {
	matches := headerNameRe.FindAllStringSubmatch(content, -1)
	sections := make([]string, 0, len(matches))
	for _, m := range matches {
		sections = append(sections, strings.ToLower(strings.TrimSpace(m[1])))
	}
	return sections
}
