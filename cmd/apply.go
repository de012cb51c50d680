package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/diff"
	"github.com/ridoystarlord/tablesmith/loader"
)

var (
	applyFile   string
	applyDryRun bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create missing tables, columns and foreign keys from a table file",
	Long: `Compare a YAML table file with the database and run the additive
statements that close the gap. Nothing is ever dropped or retyped: columns the
file does not mention and type differences are listed as drift.

Examples:
  tablesmith apply --file tables.yaml --dry-run   # Show the plan only
  tablesmith apply --file tables.yaml
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loader.LoadTablesFromYAML(applyFile)
		if err != nil {
			return err
		}

		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		if applyDryRun {
			plan, err := s.wb.PlanTables(cmd.Context(), defs)
			if err != nil {
				return err
			}
			showPlan(plan)
			return nil
		}

		plan, res, err := s.wb.ApplyTables(cmd.Context(), defs)
		if plan != nil {
			showPlan(plan)
		}
		if err != nil {
			return err
		}
		if res != nil {
			printResult(fmt.Sprintf("Applied %d operation(s)", len(plan.Operations)), res)
		}
		return nil
	},
}

func showPlan(plan *diff.Plan) {
	if plan.Empty() {
		green.Println("✅ No differences found between the table file and the database")
	} else {
		fmt.Println("\n📋 Plan:")
		for _, op := range plan.Operations {
			target := op.Table
			if op.Column != "" {
				target += "." + op.Column
			}
			switch op.Type {
			case diff.CreateTable:
				green.Printf("  ➕ CREATE %s\n", target)
			case diff.AddColumn:
				green.Printf("  ➕ ADD COLUMN %s\n", target)
			case diff.AddForeignKey:
				blue.Printf("  🔗 ADD FOREIGN KEY %s\n", target)
			}
			cyan.Printf("     %s\n", op.Statement.SQL)
		}
	}

	if len(plan.Drift) > 0 {
		fmt.Println("\n🟡 Drift (not changed):")
		for _, d := range plan.Drift {
			target := d.Table
			if d.Column != "" {
				target += "." + d.Column
			}
			yellow.Printf("  ⚡ %s %s: %s\n", d.Type, target, d.Detail)
		}
	}
}

func init() {
	applyCmd.Flags().StringVarP(&applyFile, "file", "f", "tables.yaml", "YAML table file")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "show the plan without executing it")
	rootCmd.AddCommand(applyCmd)
}
