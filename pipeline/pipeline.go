// Package pipeline runs the sequential multi-agent analysis: data
// gathering through tool agents, interpretation through reasoning
// agents, and final report synthesis. Tasks execute strictly in
// declaration order; each sees the concatenated output of its declared
// predecessors and nothing else.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"business-analyst/agents"
	"business-analyst/config"
	"business-analyst/database"
	"business-analyst/llm"
	"business-analyst/validation"
)

// LLM is the completion surface reasoning agents call
type LLM interface {
	Complete(ctx context.Context, system, prompt string, opts llm.Options) (string, error)
}

// MarketDataProvider feeds the stock data task
type MarketDataProvider interface {
	StockData(ctx context.Context, ticker, period string) (string, error)
	CompanyInfo(ctx context.Context, ticker string) (string, error)
}

// SearchProvider feeds the competitor and news search tasks
type SearchProvider interface {
	SearchCompetitors(ctx context.Context, companyName string) (string, error)
	SearchNews(ctx context.Context, companyName, ticker string) (string, error)
}

// ProgressPublisher receives staged progress events during a run
type ProgressPublisher interface {
	Broadcast(event string, payload interface{})
}

// ReportCache short-circuits repeated identical requests
type ReportCache interface {
	Get(ctx context.Context, ticker, mode, period string) (string, bool)
	Set(ctx context.Context, ticker, mode, period, report string)
}

// CompletionNotifier is told about finished and failed analyses (webhooks)
type CompletionNotifier interface {
	AnalysisCompleted(ticker string, queryID int64, wordCount int, duration time.Duration)
	AnalysisFailed(ticker string, queryID int64, cause error)
}

// Deps carries the pipeline collaborators. LLM, Market, Search and Repo
// are required; Events, Cache and Notifier may be nil.
type Deps struct {
	LLM      LLM
	Market   MarketDataProvider
	Search   SearchProvider
	Repo     *database.Repository
	Events   ProgressPublisher
	Cache    ReportCache
	Notifier CompletionNotifier
	Config   config.AnalysisConfig
}

// Pipeline executes analysis requests one at a time
type Pipeline struct {
	llm      LLM
	market   MarketDataProvider
	search   SearchProvider
	repo     *database.Repository
	events   ProgressPublisher
	cache    ReportCache
	notifier CompletionNotifier
	cfg      config.AnalysisConfig

	mu sync.Mutex // serializes runs: single request at a time
}

// New creates a pipeline from its dependencies
func New(deps Deps) *Pipeline {
	return &Pipeline{
		llm:      deps.LLM,
		market:   deps.Market,
		search:   deps.Search,
		repo:     deps.Repo,
		events:   deps.Events,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		cfg:      deps.Config,
	}
}

// Request describes one analysis run
type Request struct {
	Mode        string // validation.ReportTypeFull or validation.ReportTypeQuick
	Ticker      string
	CompanyName string // defaults to the ticker when empty
	Period      string // defaults per mode when empty

	// ExtraContext is user-supplied supplementary material (an uploaded
	// document, a scraped page) fed to the financial analysis task.
	ExtraContext string
}

// Result is the outcome of a completed run
type Result struct {
	QueryID     int64
	ReportID    int64
	Ticker      string
	CompanyName string
	Mode        string
	Period      string
	Report      string
	WordCount   int
	Validation  *validation.ReportValidation
	Metadata    *validation.Metadata
	Duration    time.Duration
	FromCache   bool
}

// Run executes the full task chain for the request. Any task failure
// aborts the run, marks the query failed and propagates the error.
// Validation rejection does not block report persistence.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, err := p.normalize(req)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if report, ok := p.cache.Get(ctx, req.Ticker, req.Mode, req.Period); ok {
			return &Result{
				Ticker:      req.Ticker,
				CompanyName: req.CompanyName,
				Mode:        req.Mode,
				Period:      req.Period,
				Report:      report,
				WordCount:   len(strings.Fields(report)),
				FromCache:   true,
			}, nil
		}
	}

	start := time.Now()
	queryID := p.createQuery(req)

	p.publish("analysis.started", map[string]interface{}{
		"query_id": queryID,
		"ticker":   req.Ticker,
		"mode":     req.Mode,
	})

	tasks := p.buildTasks(req)
	outputs := make(map[*Task]string, len(tasks))

	for i, task := range tasks {
		p.publish("analysis.stage", map[string]interface{}{
			"query_id": queryID,
			"ticker":   req.Ticker,
			"stage":    task.Label,
			"step":     i + 1,
			"total":    len(tasks),
		})

		out, err := p.executeTask(ctx, task, outputs, req)
		if err != nil {
			p.logAction(queryID, task.Agent.Role, fmt.Sprintf("%s failed: %v", task.Name, err), "error")
			p.failQuery(queryID, err)
			p.publish("analysis.failed", map[string]interface{}{
				"query_id": queryID,
				"ticker":   req.Ticker,
				"error":    err.Error(),
			})
			if p.notifier != nil {
				p.notifier.AnalysisFailed(req.Ticker, queryID, err)
			}
			return nil, fmt.Errorf("%s: %w", task.Name, err)
		}

		outputs[task] = out
		p.logAction(queryID, task.Agent.Role, fmt.Sprintf("completed %s (%d chars)", task.Name, len(out)), "success")
	}

	report := strings.TrimSpace(outputs[tasks[len(tasks)-1]])
	wordCount := len(strings.Fields(report))

	// Heuristic validation. A rejection is logged but the report is
	// still persisted: best-effort storage always occurs.
	reportValidation, verr := validation.ValidateReport(req.Ticker, req.CompanyName, report, req.Mode)
	if verr != nil {
		log.Printf("⚠️ Report validation rejected for %s: %v", req.Ticker, verr)
		p.logAction(queryID, "Report Validator", fmt.Sprintf("validation rejected: %v", verr), "error")
	} else {
		wordCount = reportValidation.WordCount
	}

	reportID := p.saveReport(queryID, req.Ticker, report, wordCount)

	var meta *validation.Metadata
	if verr == nil {
		meta = p.saveMetadata(queryID, req, reportValidation, report)
	}

	p.completeQuery(queryID)
	duration := time.Since(start)

	completed := map[string]interface{}{
		"query_id":   queryID,
		"report_id":  reportID,
		"ticker":     req.Ticker,
		"mode":       req.Mode,
		"word_count": wordCount,
		"duration":   duration.Round(time.Second).String(),
	}
	if reportValidation != nil {
		completed["completeness_score"] = reportValidation.CompletenessScore
		completed["structure_score"] = reportValidation.StructureScore
	}
	p.publish("analysis.completed", completed)

	if p.cache != nil {
		p.cache.Set(ctx, req.Ticker, req.Mode, req.Period, report)
	}
	if p.notifier != nil {
		p.notifier.AnalysisCompleted(req.Ticker, queryID, wordCount, duration)
	}

	return &Result{
		QueryID:     queryID,
		ReportID:    reportID,
		Ticker:      req.Ticker,
		CompanyName: req.CompanyName,
		Mode:        req.Mode,
		Period:      req.Period,
		Report:      report,
		WordCount:   wordCount,
		Validation:  reportValidation,
		Metadata:    meta,
		Duration:    duration,
	}, nil
}

// normalize applies defaults and rejects requests we cannot route
func (p *Pipeline) normalize(req Request) (Request, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		return req, fmt.Errorf("ticker is required")
	}

	switch req.Mode {
	case validation.ReportTypeFull, validation.ReportTypeQuick:
	case "":
		req.Mode = validation.ReportTypeFull
	default:
		return req, fmt.Errorf("unknown analysis mode: %s", req.Mode)
	}

	if req.CompanyName == "" {
		req.CompanyName = req.Ticker
	}

	if req.Period == "" {
		if req.Mode == validation.ReportTypeQuick {
			req.Period = p.cfg.QuickPeriod
		} else {
			req.Period = p.cfg.DefaultPeriod
		}
	}

	return req, nil
}

// buildTasks constructs the fixed task graph for the requested mode.
// Full runs six tasks; Quick drops the news search and shortens the
// price history period.
func (p *Pipeline) buildTasks(req Request) []*Task {
	stockAgent := agents.StockDataAgent()
	searchAgent := agents.WebSearchAgent()
	finAgent := agents.FinancialAnalystAgent()
	compAgent := agents.CompetitorAnalystAgent()
	writerAgent := agents.ReportWriterAgent()

	fetch := FetchStockDataTask(stockAgent, req.Ticker, req.Period)
	competitors := SearchCompetitorsTask(searchAgent, req.CompanyName, "")

	if req.Mode == validation.ReportTypeQuick {
		analyzeFin := AnalyzeFinancialsTask(finAgent, fetch)
		analyzeComp := AnalyzeCompetitorsTask(compAgent, req.CompanyName, competitors)
		report := WriteFinalReportTask(writerAgent, req.CompanyName, req.Ticker,
			p.cfg.ReportMinWords, p.cfg.ReportMaxWords, fetch, analyzeFin, analyzeComp)
		return []*Task{fetch, competitors, analyzeFin, analyzeComp, report}
	}

	news := SearchCompanyNewsTask(searchAgent, req.CompanyName, req.Ticker)
	analyzeFin := AnalyzeFinancialsTask(finAgent, fetch)
	analyzeComp := AnalyzeCompetitorsTask(compAgent, req.CompanyName, competitors, news)
	report := WriteFinalReportTask(writerAgent, req.CompanyName, req.Ticker,
		p.cfg.ReportMinWords, p.cfg.ReportMaxWords, fetch, analyzeFin, analyzeComp)
	return []*Task{fetch, competitors, news, analyzeFin, analyzeComp, report}
}

// executeTask runs one task: tool agents hit their adapter, reasoning
// agents get the task prompt plus upstream context through the LLM.
func (p *Pipeline) executeTask(ctx context.Context, task *Task, outputs map[*Task]string, req Request) (string, error) {
	if task.Agent.IsTool() {
		return p.executeToolTask(ctx, task, req)
	}

	// User-supplied material enters at the first analysis step so its
	// findings propagate to everything downstream.
	extra := ""
	if task.Name == TaskAnalyzeFinancials {
		extra = req.ExtraContext
	}

	prompt := buildPrompt(task, outputs, extra)
	opts := llm.Options{Temperature: task.Agent.Temperature}

	out, err := p.llm.Complete(ctx, task.Agent.SystemPrompt(), prompt, opts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty completion from model")
	}
	return out, nil
}

func (p *Pipeline) executeToolTask(ctx context.Context, task *Task, req Request) (string, error) {
	switch task.Name {
	case TaskFetchStockData:
		prices, err := p.market.StockData(ctx, req.Ticker, req.Period)
		if err != nil {
			return "", err
		}
		info, err := p.market.CompanyInfo(ctx, req.Ticker)
		if err != nil {
			return "", err
		}
		return "=== Stock Price Data ===\n" + prices + "\n\n=== Company Information ===\n" + info, nil

	case TaskSearchCompetitors:
		return p.search.SearchCompetitors(ctx, req.CompanyName)

	case TaskSearchNews:
		return p.search.SearchNews(ctx, req.CompanyName, req.Ticker)

	default:
		return "", fmt.Errorf("no adapter wired for task %s", task.Name)
	}
}

// buildPrompt renders the task instruction with its upstream context as
// an ordered list of labelled sections.
func buildPrompt(task *Task, outputs map[*Task]string, extra string) string {
	var sb strings.Builder
	sb.Grow(len(task.Description) + len(task.ExpectedOutput) + len(extra) + 256)

	sb.WriteString(strings.TrimSpace(task.Description))

	if len(task.Context) > 0 {
		sb.WriteString("\n\nContext from previous tasks:")
		for _, upstream := range task.Context {
			sb.WriteString("\n\n--- ")
			sb.WriteString(upstream.Name)
			sb.WriteString(" ---\n")
			sb.WriteString(outputs[upstream])
		}
	}

	if extra != "" {
		sb.WriteString("\n\nAdditional context provided by the user:\n")
		sb.WriteString(extra)
	}

	sb.WriteString("\n\nExpected output:\n")
	sb.WriteString(strings.TrimSpace(task.ExpectedOutput))

	return sb.String()
}

// --- best-effort persistence ---
// Database writes never affect the user-visible result. Failures are
// logged and swallowed; a zero query id disables the dependent writes.

func (p *Pipeline) createQuery(req Request) int64 {
	if p.repo == nil {
		return 0
	}
	id, err := p.repo.CreateQuery(req.Ticker, req.CompanyName, req.Mode, req.Period)
	if err != nil {
		log.Printf("⚠️ Failed to create query record: %v", err)
		return 0
	}
	return id
}

func (p *Pipeline) failQuery(queryID int64, cause error) {
	if p.repo == nil || queryID == 0 {
		return
	}
	if err := p.repo.UpdateQueryStatus(queryID, "failed", cause.Error()); err != nil {
		log.Printf("⚠️ Failed to mark query %d failed: %v", queryID, err)
	}
}

func (p *Pipeline) completeQuery(queryID int64) {
	if p.repo == nil || queryID == 0 {
		return
	}
	if err := p.repo.UpdateQueryStatus(queryID, "completed", ""); err != nil {
		log.Printf("⚠️ Failed to mark query %d completed: %v", queryID, err)
	}
}

func (p *Pipeline) logAction(queryID int64, agentName, summary, status string) {
	if p.repo == nil || queryID == 0 {
		return
	}
	if _, err := p.repo.LogAgentAction(queryID, agentName, summary, status); err != nil {
		log.Printf("⚠️ Failed to log agent action: %v", err)
	}
}

func (p *Pipeline) saveReport(queryID int64, ticker, report string, wordCount int) int64 {
	if p.repo == nil || queryID == 0 {
		return 0
	}
	id, err := p.repo.SaveReport(queryID, ticker, report, wordCount)
	if err != nil {
		log.Printf("⚠️ Failed to save report for query %d: %v", queryID, err)
		return 0
	}
	return id
}

// saveMetadata derives the analysis metadata from the validation result
// and stores it. Returns the metadata even when storage fails.
func (p *Pipeline) saveMetadata(queryID int64, req Request, v *validation.ReportValidation, report string) *validation.Metadata {
	confidence := (v.CompletenessScore + v.StructureScore) / 2

	summary := reportSummary(report)
	if len(summary) < 50 {
		summary = fmt.Sprintf("Automated %s for %s (%s) produced a %d-word report covering %d required sections.",
			strings.ToLower(req.Mode), req.CompanyName, req.Ticker, v.WordCount, len(v.SectionsFound))
	}

	keyDecisions := fmt.Sprintf(
		"Senior Financial Analyst: completed financial analysis. Competitive Intelligence Analyst: assessed competitive landscape. Business Report Writer: assembled %d-word report with %d sections found.",
		v.WordCount, len(v.SectionsFound))

	meta, err := validation.NewMetadata(req.Ticker, queryID, summary, keyDecisions, v.CompletenessScore, confidence)
	if err != nil {
		log.Printf("⚠️ Failed to build metadata for query %d: %v", queryID, err)
		return nil
	}

	if p.repo != nil && queryID != 0 {
		if _, err := p.repo.SaveMetadata(queryID, meta.KeyDecisions, meta.DataCompleteness, meta.ConfidenceScore, meta.Summary); err != nil {
			log.Printf("⚠️ Failed to save metadata for query %d: %v", queryID, err)
		}
	}

	return meta
}

// reportSummary pulls the first prose paragraph after the title
func reportSummary(report string) string {
	for _, block := range strings.Split(report, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") || strings.HasPrefix(block, "-") || strings.HasPrefix(block, "*") {
			continue
		}
		if len(block) > 500 {
			block = block[:500]
		}
		return block
	}
	return ""
}

func (p *Pipeline) publish(event string, payload map[string]interface{}) {
	if p.events == nil {
		return
	}
	p.events.Broadcast(event, payload)
}
