package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/loader"
	"github.com/ridoystarlord/tablesmith/schema"
)

var (
	createColumns []string
	createFile    string
)

var createTableCmd = &cobra.Command{
	Use:   "create-table [table]",
	Short: "Create a table from --column specs or a table file",
	Long: `Create a table. Columns are given as name:TYPE[:flags] where flags are
comma separated: pk, ai, notnull, unique, default=<v>, first, after=<col>.

Examples:
  tablesmith create-table products --column "id:INT:pk,ai" --column "name:VARCHAR(100):notnull" --column "category_id:INT"
  tablesmith create-table --file tables.yaml
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := tableDefinitions(args)
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		for _, def := range defs {
			res, err := s.wb.CreateTable(cmd.Context(), def)
			if err != nil {
				return fmt.Errorf("creating %s: %w", def.Name, err)
			}
			printResult("Table "+def.Name+" created", res)
		}
		return nil
	},
}

func tableDefinitions(args []string) ([]schema.TableDefinition, error) {
	if createFile != "" {
		if len(args) > 0 || len(createColumns) > 0 {
			return nil, fmt.Errorf("--file cannot be combined with a table name or --column")
		}
		return loader.LoadTablesFromYAML(createFile)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("table name is required")
	}
	if len(createColumns) == 0 {
		return nil, fmt.Errorf("at least one --column is required")
	}
	def := schema.TableDefinition{Name: args[0]}
	for _, spec := range createColumns {
		col, err := loader.ParseColumnSpec(spec)
		if err != nil {
			return nil, err
		}
		def.Columns = append(def.Columns, col)
	}
	return []schema.TableDefinition{def}, nil
}

var dropTableCmd = &cobra.Command{
	Use:   "drop-table <table>",
	Short: "Drop a table no other table references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.wb.DropTable(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResult("Table "+args[0]+" dropped", res)
		return nil
	},
}

func init() {
	createTableCmd.Flags().StringArrayVarP(&createColumns, "column", "c", nil, "column spec name:TYPE[:flags] (repeatable)")
	createTableCmd.Flags().StringVarP(&createFile, "file", "f", "", "YAML table file")
	rootCmd.AddCommand(createTableCmd, dropTableCmd)
}
