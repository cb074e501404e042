package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockscope/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 마이그레이션",
	Long: `goose 기반 스키마 마이그레이션을 실행합니다.

Subcommands:
  up      - 모든 미적용 마이그레이션 적용
  down    - 마지막 마이그레이션 롤백
  status  - 마이그레이션 상태 표시`,
}

var (
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "미적용 마이그레이션 적용",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *database.DB) error {
				if err := db.MigrateUp(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("✅ Migrations applied")
				return nil
			})
		},
	}

	migrateDownCmd = &cobra.Command{
		Use:   "down",
		Short: "마지막 마이그레이션 롤백",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *database.DB) error {
				if err := db.MigrateDown(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("✅ Rolled back one migration")
				return nil
			})
		},
	}

	migrateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "마이그레이션 상태",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *database.DB) error {
				statuses, err := db.MigrateStatus(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("%-8s %-8s %s\n", "VERSION", "STATE", "SOURCE")
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied"
					}
					fmt.Printf("%-8d %-8s %s\n", s.Version, state, s.Source)
				}
				return nil
			})
		},
	}
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withDB(fn func(db *database.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	return fn(db)
}
