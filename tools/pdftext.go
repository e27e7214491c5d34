package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages bounds extraction for very large filings
const DefaultMaxPages = 50

// PDFExtractor pulls text out of PDF documents, from local files or URLs.
// Built for SEC filings, annual reports and investor presentations.
type PDFExtractor struct {
	client *http.Client
}

// NewPDFExtractor creates a PDF text extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{
		client: newHTTPClient(60 * time.Second),
	}
}

// ExtractURL downloads a PDF and extracts its text
func (p *PDFExtractor) ExtractURL(ctx context.Context, pdfURL string, maxPages int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf,*/*")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download PDF: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("PDF download failed with status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF content: %w", err)
	}

	// Validate we actually got a PDF
	if len(content) < 4 || string(content[:4]) != "%PDF" {
		return "", fmt.Errorf("downloaded content is not a PDF (%d bytes)", len(content))
	}

	tmp, err := os.CreateTemp("", "analyst-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	return p.extract(tmp.Name(), pdfURL, maxPages)
}

// ExtractFile extracts text from a local PDF file
func (p *PDFExtractor) ExtractFile(path string, maxPages int) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not found at path: %s", path)
	}
	return p.extract(path, path, maxPages)
}

// extract reads up to maxPages pages and renders them with page markers.
// Recovers from panics caused by corrupt PDFs (e.g. zlib: invalid header).
func (p *PDFExtractor) extract(path, source string, maxPages int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("panic during PDF extraction: %v", r)
		}
	}()

	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	f, reader, openErr := pdf.Open(path)
	if openErr != nil {
		return "", fmt.Errorf("failed to open PDF: %w", openErr)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	pagesToExtract := totalPages
	if pagesToExtract > maxPages {
		pagesToExtract = maxPages
	}

	var sb strings.Builder
	sb.WriteString("=== PDF Document ===\n")
	fmt.Fprintf(&sb, "Source: %s\n", source)
	fmt.Fprintf(&sb, "Total Pages: %d\n", totalPages)
	fmt.Fprintf(&sb, "Pages Extracted: %d\n", pagesToExtract)
	sb.WriteString(strings.Repeat("=", 50))
	sb.WriteString("\n")

	for i := 1; i <= pagesToExtract; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil || pageText == "" {
			continue
		}

		fmt.Fprintf(&sb, "\n--- Page %d ---\n", i)
		sb.WriteString(pageText)

		if sb.Len() > maxToolOutput {
			break
		}
	}

	return truncate(sb.String(), maxToolOutput), nil
}
