package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/pkg/database"
	"github.com/wonny/stockscope/pkg/redis"
)

// dbCheckCmd represents the db-check command
var dbCheckCmd = &cobra.Command{
	Use:   "db-check",
	Short: "PostgreSQL / Redis 연결 확인",
	Long: `데이터베이스와 캐시 연결을 확인하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- Ping 및 Health Check 실행
- Connection Pool 통계 표시
- REDIS_ENABLED=true 인 경우 Redis Ping

Example:
  go run ./cmd/stockscope db-check`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCheckCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== stockscope Connection Check ===")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ PostgreSQL")
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Connections: %d total / %d idle / %d max\n",
		status.Stats.TotalConns, status.Stats.IdleConns, status.Stats.MaxConns)

	rdb, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	if !rdb.Enabled() {
		fmt.Println("⏭  Redis disabled (REDIS_ENABLED=false)")
	} else if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Redis ping failed: %w", err)
	} else {
		fmt.Printf("✅ Redis %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	}

	fmt.Println("\n✅ All checks passed!")
	return nil
}

// maskPassword hides the password component of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
