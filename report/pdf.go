// Package report exports generated analysis reports as downloadable
// documents. Markdown is the canonical format; PDF rendering is a
// line-based conversion that understands the subset of markdown the
// report writer produces (headers, bullets, numbered lists, bold,
// italic and inline code).
package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Page layout: A4 with one-inch margins
const pageMargin = 25.4

type rgbColor struct{ r, g, b int }

var (
	colTitle = rgbColor{0x14, 0xb8, 0xa6} // teal, shared with the web theme
	colH2    = rgbColor{0x22, 0xd3, 0xee}
	colH3    = rgbColor{0x64, 0x74, 0x8b}
	colBody  = rgbColor{0, 0, 0}
	colStamp = rgbColor{0x64, 0x74, 0x8b}
)

var (
	numberedRe   = regexp.MustCompile(`^\d+\.\s+`)
	inlineMarkRe = regexp.MustCompile("(\\*\\*.+?\\*\\*|\\*[^*\\n]+?\\*|`[^`\\n]+?`)")
)

// RenderPDF converts a markdown report into PDF bytes
func RenderPDF(markdown, ticker string, generatedAt time.Time) ([]byte, error) {
	r := newRenderer(ticker)

	r.title("Analysis Report: " + strings.ToUpper(ticker))
	r.stamp("Generated: " + generatedAt.Format("2006-01-02 15:04:05"))

	inList := false
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			if inList {
				r.pdf.Ln(1)
			} else {
				r.pdf.Ln(2)
			}
			inList = false

		case strings.HasPrefix(line, "#### "):
			r.heading(strings.TrimPrefix(line, "#### "), 10, colBody, 3, 2)
			inList = false

		case strings.HasPrefix(line, "### "):
			r.heading(strings.TrimPrefix(line, "### "), 12, colH3, 4, 3)
			inList = false

		case strings.HasPrefix(line, "## "):
			r.heading(strings.TrimPrefix(line, "## "), 14, colH2, 6, 3)
			inList = false

		case strings.HasPrefix(line, "# "):
			r.heading(strings.TrimPrefix(line, "# "), 16, colTitle, 7, 4)
			inList = false

		case trimmed == "---" || trimmed == "***":
			r.pdf.Ln(4)
			inList = false

		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "+ "):
			r.body("• " + strings.TrimSpace(line[2:]))
			inList = true

		case numberedRe.MatchString(line):
			r.body(numberedRe.ReplaceAllString(line, ""))
			inList = true

		default:
			r.body(line)
			inList = false
		}
	}

	var buf bytes.Buffer
	if err := r.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf generation failed: %w", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		return nil, fmt.Errorf("generated file is not a valid PDF")
	}
	return out, nil
}

// Filename builds the download name for an exported report
func Filename(ticker string, generatedAt time.Time, ext string) string {
	return fmt.Sprintf("%s_analysis_%s.%s",
		strings.ToUpper(ticker), generatedAt.Format("2006-01-02_15-04-05"), ext)
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string // UTF-8 to cp1252 for the core fonts
}

func newRenderer(ticker string) *renderer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Analysis Report: "+strings.ToUpper(ticker), true)
	pdf.AddPage()

	return &renderer{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
}

func (r *renderer) title(text string) {
	r.pdf.SetFont("Helvetica", "B", 20)
	r.setColor(colTitle)
	r.pdf.MultiCell(0, 10, r.tr(text), "", "C", false)
	r.pdf.Ln(2)
}

func (r *renderer) stamp(text string) {
	r.pdf.SetFont("Helvetica", "I", 10)
	r.setColor(colStamp)
	r.pdf.MultiCell(0, 5, r.tr(text), "", "C", false)
	r.pdf.Ln(4)
}

func (r *renderer) heading(text string, size float64, col rgbColor, before, after float64) {
	r.pdf.Ln(before)
	r.pdf.SetFont("Helvetica", "B", size)
	r.setColor(col)
	r.pdf.MultiCell(0, size*0.5, r.tr(plainText(text)), "", "L", false)
	r.pdf.Ln(after)
}

// body writes one flowed paragraph line, honoring inline bold, italic
// and code spans.
func (r *renderer) body(text string) {
	r.setColor(colBody)
	for _, s := range parseInline(text) {
		if s.mono {
			r.pdf.SetFont("Courier", s.style, 10)
		} else {
			r.pdf.SetFont("Helvetica", s.style, 10)
		}
		r.pdf.Write(5, r.tr(s.text))
	}
	r.pdf.Ln(5)
	r.pdf.Ln(2)
}

func (r *renderer) setColor(c rgbColor) {
	r.pdf.SetTextColor(c.r, c.g, c.b)
}

type inlineSpan struct {
	text  string
	style string // fpdf style flags: "", "B", "I"
	mono  bool
}

// parseInline splits a line into styled spans on markdown emphasis and
// code markers. Unmatched markers pass through as plain text.
func parseInline(text string) []inlineSpan {
	marks := inlineMarkRe.FindAllStringIndex(text, -1)
	if len(marks) == 0 {
		return []inlineSpan{{text: text}}
	}

	spans := make([]inlineSpan, 0, len(marks)*2+1)
	last := 0
	for _, m := range marks {
		if m[0] > last {
			spans = append(spans, inlineSpan{text: text[last:m[0]]})
		}
		raw := text[m[0]:m[1]]
		switch {
		case strings.HasPrefix(raw, "**"):
			spans = append(spans, inlineSpan{text: strings.Trim(raw, "*"), style: "B"})
		case strings.HasPrefix(raw, "`"):
			spans = append(spans, inlineSpan{text: strings.Trim(raw, "`"), mono: true})
		default:
			spans = append(spans, inlineSpan{text: strings.Trim(raw, "*"), style: "I"})
		}
		last = m[1]
	}
	if last < len(text) {
		spans = append(spans, inlineSpan{text: text[last:]})
	}
	return spans
}

// plainText drops inline markers, keeping only the visible text
func plainText(text string) string {
	var sb strings.Builder
	for _, s := range parseInline(text) {
		sb.WriteString(s.text)
	}
	return sb.String()
}
