package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/pkg/logger"
)

// crunchCmd represents the crunch command
var crunchCmd = &cobra.Command{
	Use:   "crunch",
	Short: "재무 요약 즉시 계산/저장",
	Long: `모든 시가총액 구간의 재무 요약을 계산하여 financial_summaries 에 저장합니다.
스케줄러의 financial_summary 작업과 동일합니다.

Example:
  go run ./cmd/stockscope crunch
  go run ./cmd/stockscope crunch --date 2026-03-31`,
	RunE: runCrunch,
}

var crunchDate string

func init() {
	rootCmd.AddCommand(crunchCmd)
	crunchCmd.Flags().StringVar(&crunchDate, "date", "", "기준일 (YYYY-MM-DD), 기본값은 오늘")
}

// parseDate reads YYYY-MM-DD as a UTC date. Empty means today.
func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

func runCrunch(cmd *cobra.Command, args []string) error {
	date, err := parseDate(crunchDate, time.Now())
	if err != nil {
		return err
	}

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

	summaries, err := a.summary.Crunch(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("❌ crunch failed: %w", err)
	}

	fmt.Printf("\n📊 Financial summary (%s)\n", date.Format("2006-01-02"))
	fmt.Printf("%-10s %8s %22s %22s\n", "CATEGORY", "STOCKS", "TOTAL MARKET CAP", "TOTAL PROFIT")
	for _, s := range summaries {
		fmt.Printf("%-10s %8d %22.0f %22.0f\n", s.Category, s.StockCount, s.TotalMarketCap, s.TotalProfit)
	}
	return nil
}
