package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/internal/api"
	"github.com/wonny/stockscope/internal/api/handlers"
	"github.com/wonny/stockscope/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API + WebSocket 서버를 시작합니다.

Endpoints:
  GET  /health                                     - Health check
  GET  /metrics                                    - Prometheus metrics
  GET  /api/stocks                                 - 종목 목록
  GET  /api/stocks/{id}[/daily|/fundamentals|/financials]
  GET  /api/stocks/{id}/fundamentals/latest         - 최신 재무지표
  GET  /api/stocks/{id}/financials/latest?type=     - 최신 재무제표
  GET  /api/stocks/advances-declines               - 일별 상승/하락 종목 수
  POST /api/stocks/screener                        - 기본 스크리너
  POST /api/stocks/granular-screener               - 세부 스크리너
  GET  /api/stocks/top/{metric}/{order}/{limit}    - 상세 Top/Last N
  POST /api/stocks/top-n-individual                - 지표별 Top/Last N
  POST /api/stocks/granularandtopn                 - 스크리너 + Top N
  GET  /api/stocks/financialsummary[/latest]       - 재무 요약
  GET  /api/metrics/catalog                        - 지표 목록
  GET  /ws                                         - 재무 요약 push 채널

Example:
  go run ./cmd/stockscope api
  go run ./cmd/stockscope api --port 9090 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort       string
	withScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값은 PORT)")
	apiCmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "야간 재무 요약 스케줄러 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)
	log.WithFields(map[string]interface{}{
		"port":           cfg.Port,
		"env":            cfg.Env,
		"with_scheduler": withScheduler,
	}).Info("Initializing API server")

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	h := api.Handlers{
		Stocks:   handlers.NewStockHandler(a.stocks, a.prices, a.fundamentals, a.financials, log),
		Screener: handlers.NewScreenerHandler(a.screener, a.ranking, log),
		Ranking:  handlers.NewRankingHandler(a.ranking, log),
		Summary:  handlers.NewSummaryHandler(a.summary, log),
		WS:       handlers.NewWSHandler(a.summary, cfg.API.AllowedOrigin, a.metrics, log),
	}
	router := api.NewRouter(h, a.db, a.metrics, cfg.API, log)
	server := api.New(cfg, log, router)

	if withScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}
