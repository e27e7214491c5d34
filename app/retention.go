package app

import (
	"log"
	"time"

	"business-analyst/database"
)

// RetentionSweeper periodically deletes analysis records older than the
// configured retention window.
type RetentionSweeper struct {
	repo *database.Repository
	days int
	done chan bool
}

// NewRetentionSweeper creates a new retention sweeper
func NewRetentionSweeper(repo *database.Repository, days int) *RetentionSweeper {
	return &RetentionSweeper{
		repo: repo,
		days: days,
		done: make(chan bool),
	}
}

// Start begins the sweep loop
func (rs *RetentionSweeper) Start() {
	log.Printf("🧹 Retention sweeper started (keeping %d days)", rs.days)

	// One sweep per day keeps the database bounded without competing
	// with running analyses.
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	// Initial run
	rs.sweep()

	for {
		select {
		case <-ticker.C:
			rs.sweep()
		case <-rs.done:
			log.Println("🧹 Retention sweeper stopped")
			return
		}
	}
}

// Stop stops the sweep loop
func (rs *RetentionSweeper) Stop() {
	rs.done <- true
}

func (rs *RetentionSweeper) sweep() {
	if rs.days <= 0 {
		return
	}

	removed, err := rs.repo.CleanupOldData(rs.days)
	if err != nil {
		log.Printf("⚠️ Retention sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("🧹 Retention sweep removed %d rows older than %d days", removed, rs.days)
	}
}
