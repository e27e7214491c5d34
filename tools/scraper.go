package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"
)

// maxPageBytes caps how much of a page body is read. Some investor
// relations pages serve endless streams of tracking junk.
const maxPageBytes = 10 << 20

// Scraper downloads a page, strips markup down to user-generated-content
// tags and converts the remainder to markdown prose.
type Scraper struct {
	client    *http.Client
	policy    *bluemonday.Policy
	converter *converter.Converter
}

// NewScraper creates a page scraper
func NewScraper() *Scraper {
	return &Scraper{
		client: newHTTPClient(30 * time.Second),
		policy: bluemonday.UGCPolicy(),
		converter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
	}
}

// Scrape fetches pageURL and returns its readable text content as
// markdown, cleaned and truncated. Navigation, scripts and ads do not
// survive the sanitize pass.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create scrape request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page body: %w", err)
	}

	sanitized := s.policy.Sanitize(string(body))

	markdown, err := s.converter.ConvertString(sanitized, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(markdown) == "" {
		// Conversion failures fall back to the sanitized text
		markdown = sanitized
	}

	cleaned := CleanText(markdown, DefaultCleanOptions())
	if strings.TrimSpace(cleaned) == "" {
		return "", fmt.Errorf("no readable content found at %s", pageURL)
	}

	return truncate(cleaned, maxToolOutput), nil
}
