package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/loader"
	"github.com/ridoystarlord/tablesmith/schema"
)

var addColumnCmd = &cobra.Command{
	Use:     "add-column <table> <name:TYPE[:flags]>",
	Short:   "Add a column",
	Example: `  tablesmith add-column products "launched_on:DATE:default=15/01/2024,after=name"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := loader.ParseColumnSpec(args[1])
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.AddColumn(cmd.Context(), args[0], col)
		if err != nil {
			return err
		}
		printResult(fmt.Sprintf("Column %s.%s added", args[0], col.Name), res)
		return nil
	},
}

var modifyColumnCmd = &cobra.Command{
	Use:   "modify-column <table> <name:TYPE[:flags]>",
	Short: "Change a column's type, nullability or default",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := loader.ParseColumnSpec(args[1])
		if err != nil {
			return err
		}
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.ModifyColumn(cmd.Context(), args[0], col)
		if err != nil {
			return err
		}
		printResult(fmt.Sprintf("Column %s.%s modified", args[0], col.Name), res)
		return nil
	},
}

var dropColumnCmd = &cobra.Command{
	Use:   "drop-column <table> <column>",
	Short: "Drop a column that has no foreign key in or out",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.DropColumn(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printResult(fmt.Sprintf("Column %s.%s dropped", args[0], args[1]), res)
		return nil
	},
}

var renameColumnCmd = &cobra.Command{
	Use:   "rename-column <table> <from> <to>",
	Short: "Rename a column",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.RenameColumn(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		printResult(fmt.Sprintf("Column %s.%s renamed to %s", args[0], args[1], args[2]), res)
		return nil
	},
}

var (
	fkOnDelete string
	fkOnUpdate string
	fkName     string
	fkWiden    bool
)

var addForeignKeyCmd = &cobra.Command{
	Use:   "add-fk <table> <column> <ref-table> <ref-column>",
	Short: "Add a foreign key, checking column type compatibility first",
	Long: `Add a foreign key. When the column's type is not compatible with the
referenced column nothing is executed, unless --widen is given, in which case the
column is first changed to the referenced column's type.

Examples:
  tablesmith add-fk orders customer_id customers id --on-delete CASCADE
  tablesmith add-fk orders customer_id customers id --widen
`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		fk := schema.ForeignKey{
			Name: fkName, Column: args[1], RefTable: args[2], RefColumn: args[3],
			OnDelete: fkOnDelete, OnUpdate: fkOnUpdate,
		}
		res, err := s.wb.AddForeignKey(cmd.Context(), args[0], fk, fkWiden)
		if res != nil && res.Plan != nil && !res.Plan.Compatible {
			yellow.Printf("⚠️  %s.%s is %s but %s.%s is %s\n",
				args[0], args[1], res.Plan.SourceType, args[2], args[3], res.Plan.TargetType)
			for _, note := range res.Plan.Notes {
				yellow.Printf("   • %s\n", note)
			}
			if err != nil {
				fmt.Println("💡 Re-run with --widen to change the column type first.")
			}
		}
		if err != nil {
			return err
		}
		printResult("Foreign key "+res.Plan.ForeignKey.ConstraintName(args[0])+" added", res.Result)
		return nil
	},
}

var uniqueName string

var addUniqueCmd = &cobra.Command{
	Use:   "add-unique <table> <column>[,<column>...]",
	Short: "Add a unique constraint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		cols := strings.Split(args[1], ",")
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		res, err := s.wb.AddUnique(cmd.Context(), args[0], cols, uniqueName)
		if err != nil {
			return err
		}
		printResult("Unique constraint added", res)
		return nil
	},
}

func init() {
	addForeignKeyCmd.Flags().StringVar(&fkOnDelete, "on-delete", "RESTRICT", "RESTRICT, CASCADE, SET NULL or NO ACTION")
	addForeignKeyCmd.Flags().StringVar(&fkOnUpdate, "on-update", "RESTRICT", "RESTRICT, CASCADE or NO ACTION")
	addForeignKeyCmd.Flags().StringVar(&fkName, "name", "", "constraint name (default fk_<table>_<column>)")
	addForeignKeyCmd.Flags().BoolVar(&fkWiden, "widen", false, "change the column to the referenced type when they are incompatible")
	addUniqueCmd.Flags().StringVar(&uniqueName, "name", "", "constraint name")

	rootCmd.AddCommand(addColumnCmd, modifyColumnCmd, dropColumnCmd, renameColumnCmd, addForeignKeyCmd, addUniqueCmd)
}
