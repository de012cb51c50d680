package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridoystarlord/tablesmith/loader"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/validator"
)

var (
	validateFile   string
	validateFormat string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a YAML table file without touching the database",
	Long: `Validate your table file offline.

This checks:
- Table and column naming (MySQL identifier rules, reserved keywords)
- Column types and their arguments
- Primary key, auto-increment and NOT NULL rules
- Defaults against their column type (dates accept DD/MM/YYYY)
- Foreign key actions and references to columns in the file

Examples:
  tablesmith validate                       # Validate tables.yaml
  tablesmith validate --file shop.yaml      # Validate another file
  tablesmith validate --format json         # Output validation results as JSON
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loader.LoadTablesFromYAML(validateFile)
		if err != nil {
			return err
		}

		results := make(map[string]*validator.ValidationResult, len(defs))
		valid := true
		for _, def := range defs {
			r := validator.ValidateTable(def.Name, def.Columns, def.ForeignKeys)
			results[def.Name] = r
			valid = valid && r.Valid
		}

		if validateFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(results); err != nil {
				return err
			}
		} else {
			outputText(defs, results)
		}
		if !valid {
			return fmt.Errorf("%s has errors", validateFile)
		}
		return nil
	},
}

func outputText(defs []schema.TableDefinition, results map[string]*validator.ValidationResult) {
	var errs, warns int
	for _, def := range defs {
		r := results[def.Name]
		errs += len(r.Errors)
		warns += len(r.Warnings)
		if r.Valid && len(r.Warnings) == 0 {
			green.Printf("✅ %s\n", def.Name)
			continue
		}
		if r.Valid {
			yellow.Printf("⚠️  %s\n", def.Name)
		} else {
			red.Printf("❌ %s\n", def.Name)
		}
		for i, e := range r.Errors {
			fmt.Printf("  %d. %s\n", i+1, e.Error())
		}
		for _, w := range r.Warnings {
			yellow.Printf("  🟡 %s\n", w.Error())
		}
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Tables: %d\n", len(defs))
	fmt.Printf("  • Errors: %d\n", errs)
	fmt.Printf("  • Warnings: %d\n", warns)

	if errs == 0 {
		fmt.Printf("\n🎉 Your table file is valid and ready for apply!\n")
	} else {
		fmt.Printf("\n💡 Fix the errors above before running apply.\n")
	}
}

func init() {
	validateCmd.Flags().StringVarP(&validateFile, "file", "f", "tables.yaml", "Table file to validate")
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
	rootCmd.AddCommand(validateCmd)
}
