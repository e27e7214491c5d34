package models

import "time"

// UserQuery is the root record of one analysis request. It is created with
// status "pending" when a pipeline run starts and mutated exactly once to a
// terminal status (completed or failed) when the run ends. All other records
// reference it through QueryID.
//
// Key Fields:
//   - Ticker: stock ticker symbol, uppercased on create (indexed)
//   - AnalysisType: "Full Analysis" or "Quick Analysis"
//   - Period: history period requested (1y, 6mo, ...)
//   - Status: pending, completed, failed
//   - ErrorMessage: set only on failure, carries the pipeline error text
type UserQuery struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Ticker       string    `gorm:"size:10;index;not null" json:"ticker"`
	CompanyName  *string   `json:"company_name,omitempty"`
	AnalysisType string    `gorm:"size:20;not null" json:"analysis_type"`
	Period       string    `gorm:"size:10;not null" json:"period"`
	Status       string    `gorm:"size:10;not null;default:pending" json:"status"`
	CreatedAt    time.Time `gorm:"index;autoCreateTime" json:"created_at"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}

// TableName specifies the table name for UserQuery
func (UserQuery) TableName() string {
	return "user_queries"
}

// Report holds one generated markdown report. Rows are write-once: the
// content stored here is byte-identical to what the pipeline returned and is
// never rewritten. WordCount is derived from the content at save time.
type Report struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryID       int64     `gorm:"index;not null" json:"query_id"`
	Ticker        string    `gorm:"size:10;not null" json:"ticker"`
	ReportContent string    `gorm:"type:text;not null" json:"report_content"`
	WordCount     int       `json:"word_count"`
	GeneratedAt   time.Time `gorm:"autoCreateTime" json:"generated_at"`
}

// TableName specifies the table name for Report
func (Report) TableName() string {
	return "reports"
}

// AgentLog is one append-only entry per pipeline stage. Summaries are capped
// at 500 characters before insert; logging is best-effort and never blocks
// the analysis result.
type AgentLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryID       int64     `gorm:"index;not null" json:"query_id"`
	AgentName     string    `gorm:"size:100;not null" json:"agent_name"`
	ActionSummary string    `gorm:"size:500;not null" json:"action_summary"`
	Status        string    `gorm:"size:10;not null;default:success" json:"status"` // success, error
	Timestamp     time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName specifies the table name for AgentLog
func (AgentLog) TableName() string {
	return "agent_logs"
}

// AnalysisMetadata records the validator's verdict on a completed report:
// key decisions (capped 1000 chars), both heuristic scores in [0,1], and a
// short summary (capped 500 chars). Created once per successful run.
type AnalysisMetadata struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	QueryID          int64     `gorm:"index;not null" json:"query_id"`
	KeyDecisions     string    `gorm:"size:1000;not null" json:"key_decisions"`
	DataCompleteness float64   `gorm:"not null" json:"data_completeness"`
	ConfidenceScore  float64   `gorm:"not null" json:"confidence_score"`
	Summary          string    `gorm:"size:500;not null" json:"summary"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for AnalysisMetadata
func (AnalysisMetadata) TableName() string {
	return "analysis_metadata"
}

// ConversationMessage persists one chat exchange (user message + assistant
// reply) for the chat interface. Persistence is optional: failures are
// swallowed by callers.
type ConversationMessage struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string    `gorm:"size:64;index" json:"session_id"`
	UserMessage      string    `gorm:"size:1000;not null" json:"user_message"`
	AssistantMessage string    `gorm:"size:5000;not null" json:"assistant_message"`
	Timestamp        time.Time `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName specifies the table name for ConversationMessage
func (ConversationMessage) TableName() string {
	return "conversation_history"
}
