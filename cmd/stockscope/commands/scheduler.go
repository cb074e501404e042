package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/internal/scheduler"
	"github.com/wonny/stockscope/internal/scheduler/jobs"
	"github.com/wonny/stockscope/pkg/logger"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 데몬 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/stockscope scheduler start
  go run ./cmd/stockscope scheduler run financial_summary`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- financial_summary: 매일 SUMMARY_SCHEDULE (기본 18:30, 전 구간 재무 요약 저장)
- health_check: 5분마다 (DB / Redis 상태 확인)`,
		RunE: runSchedulerStart,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  runSchedulerList,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerRun,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd, schedulerListCmd, schedulerRunCmd)
}

// newScheduler registers every job against the wired app
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, scheduler.DefaultOptions()).WithMetrics(a.metrics)

	all := []scheduler.Job{
		jobs.NewSummaryJob(a.summary, a.cfg.Summary.Schedule, a.log),
		jobs.NewHealthCheckJob(a.db, a.redis, a.log),
	}
	for _, job := range all {
		if err := sched.AddJob(job); err != nil {
			return nil, fmt.Errorf("register job: %w", err)
		}
	}
	return sched, nil
}

func withJobScheduler(fn func(a *app, sched *scheduler.Scheduler) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return err
	}
	return fn(a, sched)
}

func runSchedulerStart(cmd *cobra.Command, args []string) error {
	return withJobScheduler(func(a *app, sched *scheduler.Scheduler) error {
		sched.Start()
		fmt.Println("✅ Scheduler running. Press Ctrl+C to stop")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		sched.Stop()
		return nil
	})
}

func runSchedulerList(cmd *cobra.Command, args []string) error {
	return withJobScheduler(func(a *app, sched *scheduler.Scheduler) error {
		stats := sched.GetJobStats()
		fmt.Printf("%-20s %-18s\n", "JOB", "SCHEDULE")
		for _, name := range sched.GetAllJobs() {
			fmt.Printf("%-20s %-18s\n", name, stats[name].Schedule)
		}
		return nil
	})
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	return withJobScheduler(func(a *app, sched *scheduler.Scheduler) error {
		result, err := sched.RunJobSync(args[0])
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("❌ job %s failed after %d attempts: %s", result.JobName, result.Attempts, result.Error)
		}
		fmt.Printf("✅ %s completed in %s\n", result.JobName, result.Duration)
		return nil
	})
}
