package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/internal/contracts"
	"github.com/wonny/stockscope/internal/ranking"
	"github.com/wonny/stockscope/pkg/logger"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank [metric]",
	Short: "지표 기반 Top/Last N 랭킹",
	Long: `카탈로그에 등록된 지표로 종목을 정렬합니다.
인자 없이 실행하면 사용 가능한 지표 목록을 출력합니다.

Example:
  go run ./cmd/stockscope rank
  go run ./cmd/stockscope rank market_cap --limit 20
  go run ./cmd/stockscope rank trailing_pe --order ASC --category largecap`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRank,
}

var (
	rankOrder    string
	rankLimit    int
	rankCategory string
)

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVar(&rankOrder, "order", "DESC", "정렬 방향 (DESC|ASC|top|last)")
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 10, "결과 개수")
	rankCmd.Flags().StringVar(&rankCategory, "category", "all", "시가총액 구간 (all|largecap|midcap|smallcap|microcap)")
}

func runRank(cmd *cobra.Command, args []string) error {
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

	if len(args) == 0 {
		fmt.Println("Available metrics:")
		for _, d := range a.ranking.Catalog().Descriptors() {
			fmt.Printf("  %-28s %s\n", d.Name, d.Description)
		}
		return nil
	}

	direction, err := contracts.ParseDirection(rankOrder)
	if err != nil {
		return err
	}

	rows, err := a.ranking.Rank(cmd.Context(), ranking.Request{
		Metric:    args[0],
		Direction: direction,
		Limit:     rankLimit,
		Category:  contracts.MarketCapCategory(rankCategory),
	})
	if err != nil {
		return fmt.Errorf("❌ ranking failed: %w", err)
	}

	fmt.Printf("\n🏆 %s %s %d (%s)\n", args[0], direction, rankLimit, rankCategory)
	fmt.Println(strings.Repeat("─", 50))
	for _, row := range rows {
		fmt.Printf("%4d  %-10s %20.4f  %s\n", row.Rank, row.Ticker, row.Value, row.AsOf.Format("2006-01-02"))
	}
	return nil
}
