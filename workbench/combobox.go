package workbench

import (
	"context"
	"errors"

	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/lookup"
	"github.com/ridoystarlord/tablesmith/nlsql"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/schema"
)

// CreateCombobox materializes ref_<table>_<column> with seeds and binds the column to it.
func (w *Workbench) CreateCombobox(ctx context.Context, table, column string, seeds []string) (*lookup.Report, error) {
	report, err := w.lookup.Materialize(ctx, w.database, table, column, seeds)
	w.journalComposite(ctx, "create combobox "+table+"."+column, report, err)
	return report, err
}

// AddComboboxOptions seeds an existing combobox. Values already present are skipped.
func (w *Workbench) AddComboboxOptions(ctx context.Context, table, column string, seeds []string) (*lookup.SeedResult, error) {
	return w.lookup.Seed(ctx, w.database, schema.ReferenceTableName(table, column), seeds)
}

func (w *Workbench) ComboboxOptions(ctx context.Context, table, column string) ([]schema.ReferenceOption, error) {
	return w.lookup.ListOptions(ctx, schema.ReferenceTableName(table, column))
}

func (w *Workbench) journalComposite(ctx context.Context, operation string, report *lookup.Report, err error) {
	if w.journal == nil {
		return
	}
	res := &runner.Result{OperationID: newOperationID()}
	if err == nil {
		res.Statements = report.Statements
		w.journal.RecordResult(ctx, operation, res, -1, nil)
		return
	}
	a := runner.Activity{OperationID: res.OperationID, Level: runner.LevelError, Message: operation + ": " + err.Error()}
	var partial *dberrors.PartialMaterialization
	if errors.As(err, &partial) {
		a.Statement = partial.Statement
	}
	w.journal.Record(ctx, a)
}

// Suggest drafts a SELECT for text from the current catalog. The draft is
// never executed here.
func (w *Workbench) Suggest(ctx context.Context, text string) (*nlsql.Suggestion, error) {
	snaps, err := w.catalog.DescribeAll(ctx, w.database)
	if err != nil {
		return nil, err
	}
	return nlsql.New(snaps).Suggest(text)
}
