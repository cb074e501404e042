package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/internal/screener"
	"github.com/wonny/stockscope/pkg/logger"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "기술적 지표 스크리닝",
	Long: `JSON 조건 파일로 전 종목을 스크리닝합니다.

criteria.json 예시:
  [
    {"type": "moving_average", "period": 50, "operator": "greater_than"},
    {"type": "rsi", "operator": "less_than", "value": 30}
  ]

Example:
  go run ./cmd/stockscope screen --file criteria.json
  go run ./cmd/stockscope screen --file criteria.json --mode granular`,
	RunE: runScreen,
}

var (
	screenFile string
	screenMode string
)

func init() {
	rootCmd.AddCommand(screenCmd)
	screenCmd.Flags().StringVarP(&screenFile, "file", "f", "", "조건 JSON 파일 (필수)")
	screenCmd.Flags().StringVar(&screenMode, "mode", "basic", "스크리닝 모드 (basic|granular)")
	_ = screenCmd.MarkFlagRequired("file")
}

func parseMode(s string) (screener.Mode, error) {
	switch s {
	case "basic", "":
		return screener.ModeBasic, nil
	case "granular":
		return screener.ModeGranular, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want basic or granular)", s)
	}
}

func readCriteria(path string) ([]screener.RawCriterion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read criteria file: %w", err)
	}
	var raw []screener.RawCriterion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse criteria file: %w", err)
	}
	return raw, nil
}

func runScreen(cmd *cobra.Command, args []string) error {
	mode, err := parseMode(screenMode)
	if err != nil {
		return err
	}
	raw, err := readCriteria(screenFile)
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

	criteria, err := a.screener.Parse(raw, mode)
	if err != nil {
		return err
	}

	result, err := a.screener.Screen(cmd.Context(), criteria, mode)
	if err != nil {
		return fmt.Errorf("❌ screen failed: %w", err)
	}

	fmt.Printf("\n🔎 %d / %d stocks passed (%s)\n", len(result.Rows), result.Screened, mode)
	fmt.Printf("%-10s %12s %10s %10s\n", "TICKER", "CLOSE", "RSI", "MOMENTUM")
	for _, row := range result.Rows {
		fmt.Printf("%-10s %12.2f %10s %10s\n", row.Ticker, row.Close, optional(row.RSI), optional(row.Momentum))
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
