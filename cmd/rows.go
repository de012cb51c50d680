package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/export"
	"github.com/ridoystarlord/tablesmith/loader"
)

var insertCmd = &cobra.Command{
	Use:     "insert <table> <column=value>...",
	Short:   "Insert a row",
	Example: `  tablesmith insert products name=Chair category_id=2 launched_on=15/01/2024`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := loader.ParseAssignments(args[1:])
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.Insert(cmd.Context(), args[0], values)
		if err != nil {
			return err
		}
		printResult("Row inserted into "+args[0], res)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <table> <primary-key> <column=value>...",
	Short: "Update one row by primary key",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := loader.ParseAssignments(args[2:])
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.Update(cmd.Context(), args[0], args[1], values)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			yellow.Printf("⚠️  No row of %s has primary key %s (or nothing changed)\n", args[0], args[1])
		}
		printResult("Row updated", res)
		return nil
	},
}

var deleteRowCmd = &cobra.Command{
	Use:   "delete-row <table> <primary-key>",
	Short: "Delete one row after checking nothing references it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.DeleteRow(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printResult("Row deleted from "+args[0], res)
		return nil
	},
}

var (
	browseLimit  int
	browseOffset int
)

var browseCmd = &cobra.Command{
	Use:   "browse <table>",
	Short: "Show rows of a table in primary key order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		rs, err := s.wb.Browse(cmd.Context(), args[0], browseLimit, browseOffset)
		if err != nil {
			return err
		}
		return printRows(rs, args[0])
	},
}

var queryCmd = &cobra.Command{
	Use:   `query "<statement>"`,
	Short: "Run a read-only SELECT, SHOW, DESCRIBE or EXPLAIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		rs, err := s.wb.Query(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printRows(rs, "")
	},
}

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Export every row of a table",
	Example: `  tablesmith export products --format csv
  tablesmith export products --format sql --out products.sql`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		rs, err := s.wb.Browse(cmd.Context(), args[0], 0, 0)
		if err != nil {
			return err
		}
		if exportOut == "" {
			return export.Render(os.Stdout, rs, export.Options{Format: exportFormat, Table: args[0]})
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("creating %s: %w", exportOut, err)
		}
		if err := export.Render(f, rs, export.Options{Format: exportFormat, Table: args[0]}); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		green.Printf("✅ Exported %d row(s) to %s\n", len(rs.Rows), exportOut)
		return nil
	},
}

func init() {
	browseCmd.Flags().IntVarP(&browseLimit, "limit", "l", 50, "rows per page (0 for all)")
	browseCmd.Flags().IntVar(&browseOffset, "offset", 0, "rows to skip")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatCSV, fmt.Sprintf("one of %v", export.Formats))
	exportCmd.Flags().StringVar(&exportOut, "out", "", "write to this file instead of stdout")

	rootCmd.AddCommand(insertCmd, updateCmd, deleteRowCmd, browseCmd, queryCmd, exportCmd)
}
