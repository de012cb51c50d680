package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/export"
	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/validator"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	blue   = color.New(color.FgBlue, color.Bold)
	cyan   = color.New(color.FgCyan)
)

func printStatements(stmts []generator.Statement) {
	for _, s := range stmts {
		cyan.Printf("   %s\n", s.SQL)
		if len(s.Args) > 0 {
			cyan.Printf("   -- args: %v\n", s.Args)
		}
	}
}

// printResult reports an executed operation and the statements it ran.
func printResult(action string, res *runner.Result) {
	green.Printf("✅ %s", action)
	if res != nil {
		fmt.Printf(" (%d row(s) affected", res.RowsAffected)
		if res.LastInsertID > 0 {
			fmt.Printf(", id %d", res.LastInsertID)
		}
		fmt.Printf(", %s)", res.Duration.Round(time.Millisecond))
	}
	fmt.Println()
	if res != nil {
		printStatements(res.Statements)
	}
}

func printRows(rs *runner.ResultSet, table string) error {
	return export.Render(os.Stdout, rs, export.Options{Format: outputFormat, Table: table})
}

// reportError prints err with whatever the taxonomy knows about it.
func reportError(err error) {
	var (
		partial      *dberrors.PartialMaterialization
		blocked      *dberrors.DependencyBlocked
		validation   *validator.ValidationError
		violation    *dberrors.ConstraintViolation
		connectivity *dberrors.ConnectivityError
	)
	switch {
	case errors.As(err, &partial):
		red.Printf("❌ %v\n", err)
		if len(partial.Completed) > 0 {
			yellow.Printf("⚠️  Still in place: %s. %s was not removed.\n", strings.Join(partial.Completed, ", "), partial.ReferenceTable)
		}
		if partial.Statement != "" {
			cyan.Printf("   %s\n", partial.Statement)
		}
	case errors.As(err, &blocked):
		red.Println("❌ Delete refused")
		if blocked.Unverified {
			fmt.Printf("   Dependencies could not be checked: %v\n", blocked.Err)
			return
		}
		for _, d := range blocked.Dependencies {
			fmt.Printf("   🔗 %s\n", d)
		}
		fmt.Println("💡 Remove or reassign those rows first.")
	case errors.As(err, &validation):
		red.Printf("❌ %v\n", validation)
	case errors.As(err, &violation):
		red.Printf("❌ %v\n", err)
		if violation.Statement != "" {
			cyan.Printf("   %s\n", violation.Statement)
		}
		fmt.Printf("💡 %s\n", violation.Hint)
	case errors.As(err, &connectivity):
		red.Printf("❌ %v\n", err)
		fmt.Println("💡 Check --host/--port/--user/--password or DATABASE_URL.")
	default:
		red.Printf("❌ %v\n", err)
	}
}
