package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/runner"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent activity",
	Long: `Show recent operations from the activity journal (requires audit: true).

Examples:
  tablesmith log                    # Show recent activity
  tablesmith log --limit 50         # Show last 50 entries
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		entries, err := s.wb.Activity(cmd.Context(), logLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("📋 No activity recorded")
			return nil
		}
		showActivity(entries)
		return nil
	},
}

func showActivity(entries []runner.Activity) {
	fmt.Println("📋 Recent Activity")
	fmt.Println(strings.Repeat("=", 60))

	for i, a := range entries {
		fmt.Printf("\n%d. ", i+1)

		switch a.Level {
		case runner.LevelInfo:
			blue.Print("ℹ️  ")
		case runner.LevelWarn:
			yellow.Print("⚠️  ")
		case runner.LevelError:
			red.Print("❌ ")
		case runner.LevelSuccess:
			green.Print("✅ ")
		default:
			fmt.Print("📝 ")
		}

		cyan.Printf("[%s] ", a.ExecutedAt.Format("2006-01-02 15:04:05"))
		fmt.Print(a.Message)
		if a.ExecutedBy != "" {
			fmt.Printf(" (by %s)", a.ExecutedBy)
		}
		fmt.Println()

		if a.Statement != "" {
			cyan.Printf("   📄 %s\n", a.Statement)
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("📊 Showing %d recent entries\n", len(entries))
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 20, "Limit number of entries to show")
	rootCmd.AddCommand(logCmd)
}
