// Package database provides the embedded SQLite store for the business
// analyst application.
//
// This package includes:
//   - Connection management using GORM and the SQLite driver
//   - Idempotent schema creation on startup (no versioned migrations)
//   - Single-statement CRUD operations over the analysis tables
//
// The store is intentionally simple: one query row per analysis run with
// write-once child rows (reports, agent logs, metadata). SQLite's own
// locking is the only concurrency control; the application serializes
// pipeline runs, so a single writer is the normal case.
//
// Data Models:
//
//	All data models (UserQuery, Report, AgentLog, AnalysisMetadata,
//	ConversationMessage) are defined in the models_pkg package to avoid
//	circular import dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "business-analyst/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the
// underlying DB instance.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect opens (and creates if missing) the SQLite database file
func Connect(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite tuning: WAL survives crashes better than the default journal,
	// busy_timeout covers the rare overlapping writer (SSE viewer + sweep).
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	// Single-writer store: one open connection avoids SQLITE_BUSY churn
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ============================================================================
// Type Aliases
// ============================================================================

// Aliases let callers use database.UserQuery etc. without importing the
// models package directly.

type UserQuery = models.UserQuery
type Report = models.Report
type AgentLog = models.AgentLog
type AnalysisMetadata = models.AnalysisMetadata
type ConversationMessage = models.ConversationMessage
