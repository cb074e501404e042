package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/stockscope/pkg/database"
	"github.com/wonny/stockscope/pkg/logger"
)

// Pinger is any backing service with a liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheckJob pings the database pool and the cache
type HealthCheckJob struct {
	db     *database.DB
	cache  Pinger
	logger *logger.Logger
}

// NewHealthCheckJob creates a new health check job. cache may be nil.
func NewHealthCheckJob(db *database.DB, cache Pinger, log *logger.Logger) *HealthCheckJob {
	return &HealthCheckJob{
		db:     db,
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *HealthCheckJob) Name() string {
	return "health_check"
}

// Schedule returns the cron schedule (every 5 minutes)
func (j *HealthCheckJob) Schedule() string {
	return "0 */5 * * * *"
}

// Run pings both backends and logs pool usage
func (j *HealthCheckJob) Run(ctx context.Context) error {
	status, err := j.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	if j.cache != nil {
		if err := j.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache health check failed: %w", err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"response_ms":    status.ResponseTime.Milliseconds(),
		"acquired_conns": status.Stats.AcquiredConns,
		"total_conns":    status.Stats.TotalConns,
	}).Debug("Health check passed")

	return nil
}
