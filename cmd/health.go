package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check database connectivity",
	Long: `Check if the database is accessible and responsive.

Examples:
  tablesmith health                    # Check default database connection
  tablesmith health --timeout 10s      # Set custom timeout
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		viper.Set("mysql.timeout", healthTimeout)
		ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.wb.Health(ctx); err != nil {
			return err
		}
		green.Println("✅ Database is healthy and accessible")

		tables, err := s.wb.Tables(ctx)
		if err != nil {
			return err
		}
		db := s.wb.Database()
		if db == "" {
			db = "(default)"
		}
		fmt.Printf("📊 %d table(s) in %s\n", len(tables), db)
		if !s.cfg.Audit {
			fmt.Println("ℹ️  Activity journal is off (set audit: true to record operations)")
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVarP(&healthTimeout, "timeout", "t", 5*time.Second, "Timeout for health check")
	rootCmd.AddCommand(healthCmd)
}
