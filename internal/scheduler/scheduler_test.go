package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockscope/internal/metrics"
	"github.com/wonny/stockscope/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	runs     atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.runs.Add(1)
	if n <= j.failures {
		return errors.New("transient failure")
	}
	return nil
}

func fastOptions() Options {
	return Options{MaxRetries: 2, RetryDelay: time.Millisecond, JobTimeout: time.Second}
}

func TestAddJob_RejectsDuplicatesAndBadSchedules(t *testing.T) {
	s := New(logger.Nop(), fastOptions())

	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 30 18 * * *"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "0 30 18 * * *"}))
	assert.Error(t, s.AddJob(&countingJob{name: "b", schedule: "not a cron"}))

	assert.Equal(t, []string{"a"}, s.GetAllJobs())
}

func TestRunJobSync_RetriesUntilSuccess(t *testing.T) {
	s := New(logger.Nop(), fastOptions()).WithMetrics(metrics.NewRegistry())
	job := &countingJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("flaky")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Empty(t, result.Error)
}

func TestRunJobSync_GivesUpAfterMaxRetries(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	job := &countingJob{name: "broken", schedule: "@daily", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobSync("broken")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "transient failure", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, "transient failure", stats.LastError)
}

func TestRunJob_UnknownJob(t *testing.T) {
	s := New(logger.Nop(), fastOptions())

	assert.Error(t, s.RunJob("missing"))
	_, err := s.RunJobSync("missing")
	assert.Error(t, err)
	assert.Error(t, s.RemoveJob("missing"))
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
}

func TestStop_WaitsForBackgroundRuns(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	job := &countingJob{name: "bg", schedule: "@daily"}
	require.NoError(t, s.AddJob(job))
	s.Start()

	require.NoError(t, s.RunJob("bg"))
	s.Stop()

	assert.Equal(t, int32(1), job.runs.Load())
	history, err := s.GetJobHistory("bg")
	require.NoError(t, err)
	assert.Equal(t, 1, history.Len())
}

func TestJobHistory_KeepsLastHundred(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}

	assert.Equal(t, maxHistory, h.Len())
	assert.Len(t, h.GetLatestResults(10), 10)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 1e-9)
	assert.Len(t, h.GetFailedResults(), 50)
}
