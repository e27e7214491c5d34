package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// ReportCache short-circuits repeated analysis requests: a fresh report
// for the same ticker, mode and period is served without rerunning the
// pipeline. All operations degrade to misses when Redis is down.
type ReportCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewReportCache creates a report cache with the given entry lifetime
func NewReportCache(redis *RedisClient, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportCache{redis: redis, ttl: ttl}
}

func reportKey(ticker, mode, period string) string {
	mode = strings.ReplaceAll(strings.ToLower(mode), " ", "_")
	return fmt.Sprintf("report:%s:%s:%s", strings.ToUpper(ticker), mode, period)
}

// Get returns the cached report for the request, if one is fresh
func (c *ReportCache) Get(ctx context.Context, ticker, mode, period string) (string, bool) {
	if c == nil || c.redis == nil {
		return "", false
	}

	var report string
	if err := c.redis.Get(ctx, reportKey(ticker, mode, period), &report); err != nil {
		return "", false
	}
	if report == "" {
		return "", false
	}
	return report, true
}

// Set stores a completed report. Failures are logged and ignored; the
// cache never blocks an analysis result.
func (c *ReportCache) Set(ctx context.Context, ticker, mode, period, report string) {
	if c == nil || c.redis == nil {
		return
	}

	if err := c.redis.Set(ctx, reportKey(ticker, mode, period), report, c.ttl); err != nil {
		log.Printf("⚠️ Failed to cache report for %s: %v", ticker, err)
	}
}
