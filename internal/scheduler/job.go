package scheduler

import (
	"context"
	"sync"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	Run(ctx context.Context) error

	// Schedule is a cron expression with a leading seconds field,
	// e.g. "0 30 18 * * *" (every day at 18:30)
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory bounds the results kept per job
const maxHistory = 100

// JobHistory stores job execution history
type JobHistory struct {
	mu      sync.RWMutex
	results []JobResult
}

// AddResult adds a job result to history
func (h *JobHistory) AddResult(result JobResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.results = append(h.results, result)
	if len(h.results) > maxHistory {
		h.results = h.results[len(h.results)-maxHistory:]
	}
}

// Len returns the number of recorded runs
func (h *JobHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}

// GetLatestResults returns up to n most recent results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.results) {
		n = len(h.results)
	}
	out := make([]JobResult, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	failed := make([]JobResult, 0)
	for _, result := range h.results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.results {
		if result.Success {
			successCount++
		}
	}
	return float64(successCount) / float64(len(h.results))
}
