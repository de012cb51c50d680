package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   `suggest "<question>"`,
	Short: "Draft a SELECT from a plain-English question (never executed)",
	Example: `  tablesmith suggest "top 5 products with highest price"
  tablesmith suggest "how many customers from dhaka"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		sg, err := s.wb.Suggest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("🧠 Draft for %s:\n", sg.Table)
		cyan.Printf("   %s\n", sg.Statement.SQL)
		if len(sg.Statement.Args) > 0 {
			cyan.Printf("   -- args: %v\n", sg.Statement.Args)
		}
		for _, n := range sg.Notes {
			yellow.Printf("💡 %s\n", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
}
