package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var comboboxAdd bool

var comboboxCmd = &cobra.Command{
	Use:   "combobox <table> <column> [values...]",
	Short: "Back a column with a lookup table of allowed values",
	Long: `Create ref_<table>_<column>, seed it with the given values, convert the
column to INT if needed and attach a foreign key to the lookup table.

With no values the current options are listed. With --add the values are
added to an existing lookup table.

Examples:
  tablesmith combobox products category_id Electronics Furniture
  tablesmith combobox products category_id --add Garden
  tablesmith combobox products category_id
`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		table, column, values := args[0], args[1], args[2:]
		switch {
		case len(values) == 0:
			opts, err := s.wb.ComboboxOptions(cmd.Context(), table, column)
			if err != nil {
				return err
			}
			fmt.Printf("📋 %d option(s) for %s.%s\n", len(opts), table, column)
			for _, o := range opts {
				fmt.Printf("   %d. %s\n", o.ID, o.Value)
			}
			return nil

		case comboboxAdd:
			res, err := s.wb.AddComboboxOptions(cmd.Context(), table, column, values)
			if err != nil {
				return err
			}
			green.Printf("✅ Added %d option(s)\n", len(res.Inserted))
			if len(res.Skipped) > 0 {
				yellow.Printf("⚠️  Already present: %s\n", strings.Join(res.Skipped, ", "))
			}
			printStatements(res.Statements)
			return nil
		}

		report, err := s.wb.CreateCombobox(cmd.Context(), table, column, values)
		if err != nil {
			return err
		}
		green.Printf("✅ %s.%s now references %s\n", table, column, report.ReferenceTable)
		fmt.Printf("   Steps: %s\n", strings.Join(report.Steps, " → "))
		fmt.Printf("   Inserted: %s\n", strings.Join(report.Inserted, ", "))
		if len(report.Skipped) > 0 {
			yellow.Printf("⚠️  Skipped: %s\n", strings.Join(report.Skipped, ", "))
		}
		if report.Converted {
			yellow.Printf("⚠️  %s.%s was converted to INT\n", table, column)
		}
		printStatements(report.Statements)
		return nil
	},
}

func init() {
	comboboxCmd.Flags().BoolVar(&comboboxAdd, "add", false, "add values to an existing lookup table")
	rootCmd.AddCommand(comboboxCmd)
}
