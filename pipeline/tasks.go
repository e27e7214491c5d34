package pipeline

import (
	"fmt"
	"strings"

	"business-analyst/agents"
)

// Task names double as adapter dispatch keys and log identifiers
const (
	TaskFetchStockData     = "fetch_stock_data"
	TaskSearchCompetitors  = "search_competitors"
	TaskSearchNews         = "search_news"
	TaskScrapeCompanyInfo  = "scrape_company_info"
	TaskAnalyzeFinancials  = "analyze_financials"
	TaskAnalyzeCompetitors = "analyze_competitors"
	TaskWriteReport        = "write_report"
)

// Task is one declarative unit of pipeline work: an instruction block,
// an expected-output description and the upstream tasks whose results
// are exposed as context. Tasks carry no execution state; outputs live
// with the run that executes them.
type Task struct {
	Name           string
	Label          string // progress line shown while the task runs
	Description    string
	ExpectedOutput string
	Agent          agents.Agent
	Context        []*Task // upstream outputs fed to this task, in order
}

// FetchStockDataTask retrieves price history and company fundamentals
func FetchStockDataTask(agent agents.Agent, ticker, period string) *Task {
	return &Task{
		Name:  TaskFetchStockData,
		Label: "🔍 Fetching stock data...",
		Agent: agent,
		Description: fmt.Sprintf(`Fetch comprehensive stock market data for ticker: %s

Required Actions:
1. Get price history for period: %s
2. Get company fundamentals

Data to Retrieve:
- Historical price data (Open, High, Low, Close, Volume)
- Current stock price
- 52-week high/low
- Key financial metrics (P/E, market cap, etc.)
- Company description and sector

Return all data in a structured format. Do NOT analyze - just retrieve.`, ticker, period),
		ExpectedOutput: `Structured JSON data containing:
- Stock price history and metrics
- Company fundamental information
- All retrieved financial data`,
	}
}

// SearchCompetitorsTask finds the main rivals of a company
func SearchCompetitorsTask(agent agents.Agent, companyName, industry string) *Task {
	industryContext := industry
	if industryContext == "" {
		industryContext = "Unknown - please identify"
	}

	return &Task{
		Name:  TaskSearchCompetitors,
		Label: "🌐 Searching for competitors...",
		Agent: agent,
		Description: fmt.Sprintf(`Search the web to find competitors for: %s
Industry context: %s

Required Searches:
1. "%s competitors"
2. "%s vs" to find comparison articles
3. "%s market share"

Return:
- List of identified competitors (minimum 5)
- Brief description of each competitor
- Source URLs for the information
- Any market share data found

Return raw search results - do NOT analyze deeply.`,
			companyName, industryContext, companyName, companyName, companyName),
		ExpectedOutput: `List of competitors with:
- Company names
- Brief descriptions
- Source URLs
- Any market share data found`,
	}
}

// SearchCompanyNewsTask gathers recent news and developments
func SearchCompanyNewsTask(agent agents.Agent, companyName, ticker string) *Task {
	return &Task{
		Name:  TaskSearchNews,
		Label: "📰 Gathering news...",
		Agent: agent,
		Description: fmt.Sprintf(`Search for recent news and developments for: %s (%s)

Required Searches:
1. "%s news" - recent developments
2. "%s stock news" - market news
3. "%s earnings" - financial news
4. "%s CEO" - leadership news

Focus on:
- Recent earnings reports
- Major announcements
- Product launches
- Leadership changes
- Market-moving events

Return search results with URLs and snippets.`,
			companyName, ticker, companyName, ticker, companyName, companyName),
		ExpectedOutput: `Collection of recent news items:
- Headlines and snippets
- Source URLs
- Approximate dates
- Categories (earnings, product, leadership, etc.)`,
	}
}

// ScrapeCompanyInfoTask extracts content from a set of URLs
func ScrapeCompanyInfoTask(agent agents.Agent, urls []string) *Task {
	var list strings.Builder
	for _, u := range urls {
		fmt.Fprintf(&list, "- %s\n", u)
	}

	return &Task{
		Name:  TaskScrapeCompanyInfo,
		Label: "📄 Reading company pages...",
		Agent: agent,
		Description: fmt.Sprintf(`Scrape and extract text content from the following URLs:

%s
For each URL:
1. Scrape the page content
2. Clean the extracted text (remove ads, navigation, etc.)
3. Return the relevant business information

Focus on extracting:
- Company descriptions
- Business model information
- Key statistics
- Recent updates

Return cleaned text content - do NOT analyze.`, list.String()),
		ExpectedOutput: `Cleaned text content from each URL:
- Source URL
- Extracted relevant content
- Any key data points found`,
	}
}

// AnalyzeFinancialsTask interprets the gathered financial data
func AnalyzeFinancialsTask(agent agents.Agent, context ...*Task) *Task {
	return &Task{
		Name:    TaskAnalyzeFinancials,
		Label:   "📊 Analyzing financials...",
		Agent:   agent,
		Context: context,
		Description: `Analyze the financial data provided from previous tasks and provide expert insights.

Your Analysis Should Cover:

1. STOCK PERFORMANCE ANALYSIS
   - Price trend analysis (bullish/bearish/neutral)
   - Volatility assessment
   - Support and resistance levels
   - Comparison to 52-week range

2. VALUATION ANALYSIS
   - P/E ratio interpretation (vs industry average)
   - Price-to-Book assessment
   - PEG ratio analysis
   - Fair value estimation

3. FINANCIAL HEALTH
   - Profitability metrics (margins, ROE, ROA)
   - Growth rates (revenue, earnings)
   - Dividend analysis (if applicable)
   - Debt levels and coverage

4. KEY INSIGHTS
   - Top 3 financial strengths
   - Top 3 financial concerns
   - Investment thesis summary

Be specific with numbers. Support all conclusions with data.`,
		ExpectedOutput: `Comprehensive financial analysis including:
- Stock performance assessment with specific metrics
- Valuation analysis with fair value estimate
- Financial health scorecard
- Key strengths and concerns
- Investment thesis`,
	}
}

// AnalyzeCompetitorsTask evaluates the competitive landscape
func AnalyzeCompetitorsTask(agent agents.Agent, companyName string, context ...*Task) *Task {
	return &Task{
		Name:    TaskAnalyzeCompetitors,
		Label:   "🎯 Evaluating competition...",
		Agent:   agent,
		Context: context,
		Description: fmt.Sprintf(`Analyze the competitive landscape for: %s

Using the competitor data gathered, provide analysis on:

1. COMPETITOR IDENTIFICATION
   - List top 5-7 direct competitors
   - Identify any indirect competitors
   - Note emerging competitive threats

2. COMPETITIVE POSITIONING
   - Market position of %s
   - Market share estimates (if available)
   - Competitive advantages (moat analysis)
   - Competitive disadvantages

3. COMPARISON TABLE
   Create a comparison table with:
   - Company names
   - Market cap / size
   - Key products/services
   - Geographic presence
   - Competitive advantage

4. STRATEGIC INSIGHTS
   - Main competitive threats
   - Opportunities vs competitors
   - Market dynamics assessment

Be specific and data-driven where possible.`, companyName, companyName),
		ExpectedOutput: `Competitive analysis including:
- Ranked list of competitors with descriptions
- Competitive positioning analysis
- Comparison table
- Strategic insights and threats`,
	}
}

// WriteFinalReportTask assembles the final business analysis report.
// minWords and maxWords set the length target given to the writer;
// non-positive values fall back to the 800-1200 default.
func WriteFinalReportTask(agent agents.Agent, companyName, ticker string, minWords, maxWords int, context ...*Task) *Task {
	if minWords <= 0 {
		minWords = 800
	}
	if maxWords <= 0 {
		maxWords = 1200
	}

	return &Task{
		Name:    TaskWriteReport,
		Label:   "📝 Generating report...",
		Agent:   agent,
		Context: context,
		Description: fmt.Sprintf(`Create a comprehensive Business Analysis Report for %s (%s).

REPORT STRUCTURE:

# %s (%s) - Business Analysis Report

## Executive Summary
- One paragraph overview
- Key investment highlights
- Overall recommendation

## Company Overview
- Business description
- Products/services
- Industry and sector
- Key statistics

## Financial Analysis
- Stock performance summary
- Valuation assessment
- Financial health metrics
- Growth trajectory

## Competitive Landscape
- Key competitors
- Market position
- Competitive advantages
- Competitive threats

## SWOT Analysis
- Strengths
- Weaknesses
- Opportunities
- Threats

## Key Takeaways
- Top 5 things investors should know

## Risk Factors
- Key risks to consider

FORMAT REQUIREMENTS:
- Use clear headers and subheaders
- Include specific numbers and data points
- Use bullet points for readability
- Keep language professional but accessible
- Total length: %d-%d words`,
			companyName, ticker, companyName, ticker, minWords, maxWords),
		ExpectedOutput: `Complete business analysis report in markdown format with:
- Executive summary
- Company overview
- Financial analysis
- Competitive analysis
- SWOT analysis
- Key takeaways
- Risk factors

Professional formatting with headers, bullet points, and clear structure.`,
	}
}
