package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/stockscope/internal/aggregate"
	"github.com/wonny/stockscope/pkg/logger"
)

// SummaryJobName identifies the nightly summary crunch
const SummaryJobName = "financial_summary"

// SummaryJob crunches and persists the financial summary of every category
// ⭐ SSOT: 재무 요약 스케줄은 이 Job에서만
type SummaryJob struct {
	service  *aggregate.Service
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewSummaryJob creates a new summary job
func NewSummaryJob(service *aggregate.Service, schedule string, log *logger.Logger) *SummaryJob {
	if schedule == "" {
		schedule = "0 30 18 * * *"
	}
	return &SummaryJob{
		service:  service,
		schedule: schedule,
		now:      time.Now,
		logger:   log,
	}
}

// Name returns the job name
func (j *SummaryJob) Name() string {
	return SummaryJobName
}

// Schedule returns the cron schedule (after market close by default)
func (j *SummaryJob) Schedule() string {
	return j.schedule
}

// Run crunches every category for today's date
func (j *SummaryJob) Run(ctx context.Context) error {
	now := j.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	j.logger.WithField("date", date.Format("2006-01-02")).Info("Starting scheduled summary crunch")

	summaries, err := j.service.Crunch(ctx, date)
	if err != nil {
		return fmt.Errorf("summary crunch failed: %w", err)
	}

	j.logger.WithField("categories", len(summaries)).Info("Scheduled summary crunch completed")
	return nil
}
