package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Truncation limits applied before insert. Oversized values are cut, not
// rejected, because persistence must never fail an analysis run.
const (
	maxActionSummaryLen    = 500
	maxKeyDecisionsLen     = 1000
	maxMetadataSummaryLen  = 500
	maxUserMessageLen      = 1000
	maxAssistantMessageLen = 5000
)

// Repository handles database operations for analysis runs
type Repository struct {
	db *Database
}

// NewRepository creates a new analysis repository
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

// InitSchema creates all tables idempotently. There is no migration
// versioning: AutoMigrate runs on every startup.
func (r *Repository) InitSchema() error {
	fmt.Println("🔄 Starting database schema initialization...")

	err := r.db.db.AutoMigrate(
		&UserQuery{},
		&Report{},
		&AgentLog{},
		&AnalysisMetadata{},
		&ConversationMessage{},
	)
	if err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	fmt.Println("✅ Database schema initialization completed")
	return nil
}

// ============================================
// USER QUERIES
// ============================================

// CreateQuery records a new analysis request with status pending and returns
// its generated id, which correlates all subsequent writes for the run.
func (r *Repository) CreateQuery(ticker string, companyName, analysisType, period string) (int64, error) {
	query := UserQuery{
		Ticker:       strings.ToUpper(ticker),
		AnalysisType: analysisType,
		Period:       period,
		Status:       "pending",
	}
	if companyName != "" {
		query.CompanyName = &companyName
	}

	if err := r.db.db.Create(&query).Error; err != nil {
		return 0, fmt.Errorf("failed to create query: %w", err)
	}
	return query.ID, nil
}

// UpdateQueryStatus performs the single lifecycle mutation of a query:
// pending -> completed or pending -> failed (with the error text).
func (r *Repository) UpdateQueryStatus(queryID int64, status string, errorMessage string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": nil,
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}

	err := r.db.db.Model(&UserQuery{}).Where("id = ?", queryID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to update query status: %w", err)
	}
	return nil
}

// GetQuery retrieves a query by id, or nil when absent
func (r *Repository) GetQuery(queryID int64) (*UserQuery, error) {
	var query UserQuery
	err := r.db.db.First(&query, queryID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &query, err
}

// GetRecentQueries returns the newest queries first
func (r *Repository) GetRecentQueries(limit int) ([]UserQuery, error) {
	var queries []UserQuery
	err := r.db.db.Order("created_at DESC").Limit(limit).Find(&queries).Error
	return queries, err
}

// ============================================
// REPORTS
// ============================================

// SaveReport stores a generated report. The content is persisted exactly as
// given. Word count is derived from the content when not supplied (<= 0).
func (r *Repository) SaveReport(queryID int64, ticker, reportContent string, wordCount int) (int64, error) {
	if wordCount <= 0 {
		wordCount = len(strings.Fields(reportContent))
	}

	report := Report{
		QueryID:       queryID,
		Ticker:        strings.ToUpper(ticker),
		ReportContent: reportContent,
		WordCount:     wordCount,
	}

	if err := r.db.db.Create(&report).Error; err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	return report.ID, nil
}

// GetReport retrieves a report by id, or nil when absent
func (r *Repository) GetReport(reportID int64) (*Report, error) {
	var report Report
	err := r.db.db.First(&report, reportID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &report, err
}

// GetReportsByTicker returns the newest reports for a ticker
func (r *Repository) GetReportsByTicker(ticker string, limit int) ([]Report, error) {
	var reports []Report
	err := r.db.db.
		Where("ticker = ?", strings.ToUpper(ticker)).
		Order("generated_at DESC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

// ============================================
// AGENT LOGS
// ============================================

// LogAgentAction appends one pipeline-stage log entry. Summaries are capped
// at 500 characters.
func (r *Repository) LogAgentAction(queryID int64, agentName, actionSummary, status string) (int64, error) {
	if status == "" {
		status = "success"
	}

	entry := AgentLog{
		QueryID:       queryID,
		AgentName:     agentName,
		ActionSummary: truncate(actionSummary, maxActionSummaryLen),
		Status:        status,
	}

	if err := r.db.db.Create(&entry).Error; err != nil {
		return 0, fmt.Errorf("failed to log agent action: %w", err)
	}
	return entry.ID, nil
}

// GetAgentLogs returns all log entries for a query in execution order
func (r *Repository) GetAgentLogs(queryID int64) ([]AgentLog, error) {
	var logs []AgentLog
	err := r.db.db.
		Where("query_id = ?", queryID).
		Order("timestamp ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

// ============================================
// ANALYSIS METADATA
// ============================================

// SaveMetadata stores the validator verdict for a completed run
func (r *Repository) SaveMetadata(queryID int64, keyDecisions string, dataCompleteness, confidenceScore float64, summary string) (int64, error) {
	meta := AnalysisMetadata{
		QueryID:          queryID,
		KeyDecisions:     truncate(keyDecisions, maxKeyDecisionsLen),
		DataCompleteness: dataCompleteness,
		ConfidenceScore:  confidenceScore,
		Summary:          truncate(summary, maxMetadataSummaryLen),
	}

	if err := r.db.db.Create(&meta).Error; err != nil {
		return 0, fmt.Errorf("failed to save metadata: %w", err)
	}
	return meta.ID, nil
}

// GetMetadata retrieves the metadata row for a query, or nil when absent
func (r *Repository) GetMetadata(queryID int64) (*AnalysisMetadata, error) {
	var meta AnalysisMetadata
	err := r.db.db.Where("query_id = ?", queryID).First(&meta).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return &meta, err
}

// ============================================
// CONVERSATION HISTORY
// ============================================

// SaveConversation persists one chat exchange
func (r *Repository) SaveConversation(sessionID, userMessage, assistantMessage string) (int64, error) {
	msg := ConversationMessage{
		SessionID:        sessionID,
		UserMessage:      truncate(userMessage, maxUserMessageLen),
		AssistantMessage: truncate(assistantMessage, maxAssistantMessageLen),
	}

	if err := r.db.db.Create(&msg).Error; err != nil {
		return 0, fmt.Errorf("failed to save conversation: %w", err)
	}
	return msg.ID, nil
}

// GetConversation returns a session's exchanges oldest first
func (r *Repository) GetConversation(sessionID string, limit int) ([]ConversationMessage, error) {
	var messages []ConversationMessage
	err := r.db.db.
		Where("session_id = ?", sessionID).
		Order("timestamp ASC, id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// ============================================
// MAINTENANCE
// ============================================

// CleanupOldData deletes rows strictly older than the cutoff (today at
// midnight minus the given number of days) across all tables, children
// before parents. Returns the total number of rows removed.
func (r *Repository) CleanupOldData(days int) (int64, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := midnight.AddDate(0, 0, -days)

	var deleted int64

	res := r.db.db.Where("created_at < ?", cutoff).Delete(&AnalysisMetadata{})
	if res.Error != nil {
		return deleted, fmt.Errorf("failed to delete old metadata: %w", res.Error)
	}
	deleted += res.RowsAffected

	res = r.db.db.Where("timestamp < ?", cutoff).Delete(&AgentLog{})
	if res.Error != nil {
		return deleted, fmt.Errorf("failed to delete old agent logs: %w", res.Error)
	}
	deleted += res.RowsAffected

	res = r.db.db.Where("generated_at < ?", cutoff).Delete(&Report{})
	if res.Error != nil {
		return deleted, fmt.Errorf("failed to delete old reports: %w", res.Error)
	}
	deleted += res.RowsAffected

	res = r.db.db.Where("timestamp < ?", cutoff).Delete(&ConversationMessage{})
	if res.Error != nil {
		return deleted, fmt.Errorf("failed to delete old conversations: %w", res.Error)
	}
	deleted += res.RowsAffected

	res = r.db.db.Where("created_at < ?", cutoff).Delete(&UserQuery{})
	if res.Error != nil {
		return deleted, fmt.Errorf("failed to delete old queries: %w", res.Error)
	}
	deleted += res.RowsAffected

	return deleted, nil
}

// Stats summarizes stored record counts and the completion rate
type Stats struct {
	TotalQueries  int64   `json:"total_queries"`
	TotalReports  int64   `json:"total_reports"`
	TotalLogs     int64   `json:"total_logs"`
	TotalMetadata int64   `json:"total_metadata"`
	SuccessRate   float64 `json:"success_rate"`
}

// GetStats counts stored records and computes the completion rate
func (r *Repository) GetStats() (*Stats, error) {
	stats := &Stats{}

	if err := r.db.db.Model(&UserQuery{}).Count(&stats.TotalQueries).Error; err != nil {
		return nil, fmt.Errorf("failed to count queries: %w", err)
	}
	if err := r.db.db.Model(&Report{}).Count(&stats.TotalReports).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	if err := r.db.db.Model(&AgentLog{}).Count(&stats.TotalLogs).Error; err != nil {
		return nil, fmt.Errorf("failed to count agent logs: %w", err)
	}
	if err := r.db.db.Model(&AnalysisMetadata{}).Count(&stats.TotalMetadata).Error; err != nil {
		return nil, fmt.Errorf("failed to count metadata: %w", err)
	}

	var completed int64
	if err := r.db.db.Model(&UserQuery{}).Where("status = ?", "completed").Count(&completed).Error; err != nil {
		return nil, fmt.Errorf("failed to count completed queries: %w", err)
	}
	if stats.TotalQueries > 0 {
		stats.SuccessRate = float64(completed) / float64(stats.TotalQueries) * 100
	}

	return stats, nil
}

// truncate cuts s to at most n bytes
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
