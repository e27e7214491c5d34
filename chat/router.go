// Package chat routes conversational messages: analysis commands run
// the pipeline, document commands manage per-session context, greetings
// and help get canned answers, and everything else goes to the model.
package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"

	"business-analyst/database"
	"business-analyst/helpers"
	"business-analyst/llm"
	"business-analyst/pipeline"
	"business-analyst/validation"
)

const (
	chatTemperature = 0.6
	// docContextLimit bounds how much of a loaded document rides along
	// with freeform questions.
	docContextLimit = 8000
	replyExcerptLen = 1000
)

// Analyzer runs one analysis request
type Analyzer interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// LLM answers freeform questions
type LLM interface {
	Complete(ctx context.Context, system, prompt string, opts llm.Options) (string, error)
	CompleteStream(ctx context.Context, system, prompt string, opts llm.Options, callback llm.StreamCallback) error
}

// PageReader loads a web page as cleaned markdown
type PageReader interface {
	Scrape(ctx context.Context, pageURL string) (string, error)
}

var (
	tickerRe  = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	readURLRe = regexp.MustCompile(`(?i)^(?:read|load|scrape)\s+(https?://\S+)`)
)

// tickerStopwords are short all-caps tokens users type that are never
// meant as tickers.
var tickerStopwords = map[string]bool{
	"I": true, "A": true, "OK": true, "PDF": true, "URL": true,
}

type session struct {
	docName string
	docText string
}

// Router dispatches chat messages for all sessions. Document context is
// held in memory per session; conversation history is persisted
// best-effort through the repository.
type Router struct {
	analyzer Analyzer
	model    LLM
	pages    PageReader
	repo     *database.Repository

	mu       sync.Mutex
	sessions map[string]*session
}

// NewRouter creates a chat router. pages and repo may be nil; the
// related features degrade gracefully.
func NewRouter(analyzer Analyzer, model LLM, pages PageReader, repo *database.Repository) *Router {
	return &Router{
		analyzer: analyzer,
		model:    model,
		pages:    pages,
		repo:     repo,
		sessions: make(map[string]*session),
	}
}

// LoadDocument attaches extracted document text to a session,
// replacing any previous document.
func (r *Router) LoadDocument(sessionID, name, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = &session{docName: name, docText: text}
}

// Document reports the loaded document for a session, if any
func (r *Router) Document(sessionID string) (name string, chars int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, found := r.sessions[sessionID]
	if !found || s.docText == "" {
		return "", 0, false
	}
	return s.docName, len(s.docText), true
}

// ClearDocument drops a session's document context
func (r *Router) ClearDocument(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// History returns a session's stored exchanges, oldest first
func (r *Router) History(sessionID string, limit int) ([]database.ConversationMessage, error) {
	if r.repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	return r.repo.GetConversation(sessionID, limit)
}

// Reply handles one message and returns the full answer
func (r *Router) Reply(ctx context.Context, sessionID, message string) string {
	reply, handled := r.dispatch(ctx, sessionID, message)
	if !handled {
		reply = r.freeform(ctx, sessionID, message)
	}
	r.persist(sessionID, message, reply)
	return reply
}

// ReplyStream handles one message, emitting the answer through onToken.
// Command answers arrive as a single token; freeform answers stream
// from the model chunk by chunk.
func (r *Router) ReplyStream(ctx context.Context, sessionID, message string, onToken func(string) error) (string, error) {
	if reply, handled := r.dispatch(ctx, sessionID, message); handled {
		if err := onToken(reply); err != nil {
			return "", err
		}
		r.persist(sessionID, message, reply)
		return reply, nil
	}

	system, prompt := r.freeformPrompt(sessionID, message)
	var sb strings.Builder
	err := r.model.CompleteStream(ctx, system, prompt, llm.Options{Temperature: chatTemperature}, func(chunk string) error {
		sb.WriteString(chunk)
		return onToken(chunk)
	})
	if err != nil {
		if sb.Len() > 0 {
			// Partial answer already sent; surface the break.
			return sb.String(), err
		}
		reply := fallbackReply(message)
		if terr := onToken(reply); terr != nil {
			return "", terr
		}
		r.persist(sessionID, message, reply)
		return reply, nil
	}

	reply := sb.String()
	r.persist(sessionID, message, reply)
	return reply, nil
}

// dispatch matches the command handlers in priority order. The second
// return is false when the message should go to the model instead.
func (r *Router) dispatch(ctx context.Context, sessionID, message string) (string, bool) {
	trimmed := strings.TrimSpace(message)
	lower := strings.ToLower(trimmed)

	if m := readURLRe.FindStringSubmatch(trimmed); m != nil {
		return r.readPage(ctx, sessionID, m[1]), true
	}

	if containsAny(lower, "analyze", "analysis", "report") {
		return r.analyze(ctx, sessionID, trimmed), true
	}

	if containsAny(lower, "pdf", "document", "upload", "file") {
		return r.documentStatus(sessionID), true
	}

	if isGreeting(lower) {
		return "Hello! I'm your AI business analyst. I can help you analyze companies, generate reports, and answer questions about stocks. How can I assist you?", true
	}

	if strings.Contains(lower, "help") || strings.Contains(lower, "what can you") {
		return "I can help you with:\n- Company analysis (e.g., 'Analyze AAPL')\n- Document analysis: upload a PDF or say 'read <url>'\n- Stock market questions\n\nTry asking: 'Analyze MSFT' or load a document and ask about it!", true
	}

	return "", false
}

// analyze runs a quick pipeline pass for the first ticker-looking token
func (r *Router) analyze(ctx context.Context, sessionID, message string) string {
	ticker := extractTicker(message)
	if ticker == "" {
		return "I can help you analyze a company! Please provide a stock ticker symbol (e.g., 'Analyze AAPL' or 'Generate report for MSFT')."
	}

	docName, docText := r.sessionDoc(sessionID)
	res, err := r.analyzer.Run(ctx, pipeline.Request{
		Mode:         validation.ReportTypeQuick,
		Ticker:       ticker,
		ExtraContext: docText,
	})
	if err != nil {
		return fmt.Sprintf("❌ Error during analysis: %v\n\nPlease try again or check if the ticker symbol is correct.", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ **Analysis Complete for %s**\n\n", ticker)
	sb.WriteString("I've generated a business analysis report. Here's a summary:\n\n")

	excerpt := res.Report
	if len(excerpt) > replyExcerptLen {
		excerpt = strings.ToValidUTF8(excerpt[:replyExcerptLen], "") + "..."
	}
	sb.WriteString(excerpt)

	if res.Validation != nil {
		fmt.Fprintf(&sb, "\n\n📈 Completeness: %s | Structure: %s",
			helpers.FormatPercent(res.Validation.CompletenessScore),
			helpers.FormatPercent(res.Validation.StructureScore))
	}
	if res.ReportID != 0 {
		fmt.Fprintf(&sb, "\n\n📊 **Full report saved (#%d). Open it from the Reports panel.**", res.ReportID)
	} else {
		sb.WriteString("\n\n📊 **Full report is available below.**")
	}
	if docText != "" {
		fmt.Fprintf(&sb, "\n\n📄 *Analysis incorporated insights from: %s*", docName)
	}
	return sb.String()
}

func (r *Router) readPage(ctx context.Context, sessionID, pageURL string) string {
	if r.pages == nil {
		return "📄 Page reading is not available right now."
	}

	text, err := r.pages.Scrape(ctx, pageURL)
	if err != nil {
		return fmt.Sprintf("❌ Could not read %s: %v", pageURL, err)
	}

	r.LoadDocument(sessionID, pageURL, text)
	return fmt.Sprintf("📄 Loaded %s: extracted %d characters. Ask me to analyze a company and I'll use it as additional context.", pageURL, len(text))
}

func (r *Router) documentStatus(sessionID string) string {
	name, chars, ok := r.Document(sessionID)
	if !ok {
		return "📄 No document is currently loaded. Upload a PDF or tell me to 'read <url>' first."
	}
	return fmt.Sprintf("✅ I have a document loaded: **%s** (%d characters)\n\nAsk me to analyze a company and I'll incorporate insights from it. For example: 'Analyze AAPL'", name, chars)
}

// freeform asks the model directly; canned capabilities on failure
func (r *Router) freeform(ctx context.Context, sessionID, message string) string {
	system, prompt := r.freeformPrompt(sessionID, message)
	answer, err := r.model.Complete(ctx, system, prompt, llm.Options{Temperature: chatTemperature})
	if err != nil || strings.TrimSpace(answer) == "" {
		return fallbackReply(message)
	}
	return answer
}

func (r *Router) freeformPrompt(sessionID, message string) (system, prompt string) {
	system = "You are an AI business analyst assistant. Answer questions about companies, stocks and markets concisely and honestly. Say so when you do not know."
	if name, text := r.sessionDoc(sessionID); text != "" {
		if len(text) > docContextLimit {
			text = strings.ToValidUTF8(text[:docContextLimit], "")
		}
		system += fmt.Sprintf("\n\nThe user has loaded a document (%s). Use it when relevant:\n\n%s", name, text)
	}
	return system, message
}

func (r *Router) sessionDoc(sessionID string) (name, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		return s.docName, s.docText
	}
	return "", ""
}

func (r *Router) persist(sessionID, userMessage, reply string) {
	if r.repo == nil {
		return
	}
	if _, err := r.repo.SaveConversation(sessionID, userMessage, reply); err != nil {
		log.Printf("⚠️ Failed to save conversation: %v", err)
	}
}

func fallbackReply(message string) string {
	return fmt.Sprintf("I understand you're asking about: %s\n\n"+
		"I can help you with:\n"+
		"- **Company Analysis**: Say 'Analyze [TICKER]' (e.g., 'Analyze AAPL')\n"+
		"- **Document Analysis**: Upload a PDF or say 'read <url>'\n"+
		"- **Questions**: Ask me anything about stocks or companies\n\n"+
		"Try: 'Analyze MSFT' or 'Generate a report for GOOGL'", message)
}

// extractTicker picks the first all-caps 1-5 letter token the user
// actually typed in uppercase.
func extractTicker(message string) string {
	for _, candidate := range tickerRe.FindAllString(message, -1) {
		if !tickerStopwords[candidate] {
			return candidate
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isGreeting(lower string) bool {
	for _, field := range strings.Fields(lower) {
		switch strings.Trim(field, ".,!?") {
		case "hello", "hi", "hey":
			return true
		}
	}
	return false
}
