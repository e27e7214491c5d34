package tools

import (
	"regexp"
	"strings"
)

var (
	urlRe   = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Boilerplate fragments that survive HTML-to-text conversion on most
	// news and corporate pages.
	boilerplateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?is)Cookie Policy.*?Accept`),
		regexp.MustCompile(`(?is)Privacy Policy.*?Terms`),
		regexp.MustCompile(`(?is)Subscribe to our newsletter.*?Email`),
		regexp.MustCompile(`(?is)Follow us on.*?Twitter`),
		regexp.MustCompile(`(?is)©\s*\d{4}.*?All rights reserved`),
		regexp.MustCompile(`(?is)Loading\.\.\.`),
		regexp.MustCompile(`(?is)\[.*?\]`),
	}

	specialCharsRe = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?;:'"()-]`)
	spacesRe       = regexp.MustCompile(`[ \t]+`)
	blankLinesRe   = regexp.MustCompile(`\n\s*\n`)
)

// CleanOptions control which cleaning passes run. The zero value keeps
// everything; use DefaultCleanOptions for the standard scrape/PDF pass.
type CleanOptions struct {
	RemoveURLs         bool
	RemoveEmails       bool
	RemoveWhitespace   bool
	RemoveSpecialChars bool
}

// DefaultCleanOptions strips URLs, emails and extra whitespace
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		RemoveURLs:       true,
		RemoveEmails:     true,
		RemoveWhitespace: true,
	}
}

// CleanText normalizes raw text from web scraping or PDF extraction:
// removes URLs, emails, boilerplate and noise lines so the result is
// readable prose suitable for LLM processing.
func CleanText(text string, opts CleanOptions) string {
	if text == "" {
		return ""
	}

	cleaned := text

	if opts.RemoveURLs {
		cleaned = urlRe.ReplaceAllString(cleaned, "")
	}

	if opts.RemoveEmails {
		cleaned = emailRe.ReplaceAllString(cleaned, "")
	}

	// Boilerplate is always removed
	for _, re := range boilerplateRes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	if opts.RemoveSpecialChars {
		cleaned = specialCharsRe.ReplaceAllString(cleaned, "")
	}

	if opts.RemoveWhitespace {
		cleaned = spacesRe.ReplaceAllString(cleaned, " ")
		cleaned = blankLinesRe.ReplaceAllString(cleaned, "\n\n")

		lines := strings.Split(cleaned, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(line)
		}
		cleaned = strings.Join(lines, "\n")
		cleaned = strings.TrimSpace(cleaned)
	}

	// Drop very short lines, they are almost always menu fragments
	lines := strings.Split(cleaned, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 3 || trimmed == "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}
