package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/pkg/config"
)

var (
	// Global flags
	verbose   bool
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockscope",
	Short: "stockscope - 종목 스크리너 / 랭킹 / 재무 요약 백엔드",
	Long: `stockscope Unified CLI

기술적 지표 스크리닝, 지표 기반 Top/Last N 랭킹,
시가총액 구간별 재무 요약을 제공하는 백엔드.

Usage:
  go run ./cmd/stockscope [command]

Examples:
  go run ./cmd/stockscope api --with-scheduler
  go run ./cmd/stockscope migrate up
  go run ./cmd/stockscope rank market_cap --limit 10
  go run ./cmd/stockscope db-check`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug 로그 출력")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "로그 포맷 (json|console), 기본값은 LOG_FORMAT")
}

// loadConfig loads the environment and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, nil
}
