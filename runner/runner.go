// Package runner executes synthesized statements inside explicit
// transactions and scans query results.
package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/generator"
	"github.com/ridoystarlord/tablesmith/logging"
)

// Result describes one executed operation.
type Result struct {
	OperationID  string                `json:"operation_id"`
	Statements   []generator.Statement `json:"statements"`
	RowsAffected int64                 `json:"rows_affected"`
	LastInsertID int64                 `json:"last_insert_id,omitempty"`
	Duration     time.Duration         `json:"duration"`
}

type Executor struct {
	db      *sql.DB
	journal *Journal
	logger  *slog.Logger
}

func NewExecutor(db *sql.DB, logger *slog.Logger) *Executor {
	return &Executor{db: db, logger: logging.OrDiscard(logger)}
}

// WithJournal records every operation run through the executor.
func (e *Executor) WithJournal(j *Journal) *Executor {
	e.journal = j
	return e
}

func (e *Executor) DB() *sql.DB { return e.db }

// Tx runs fn inside one transaction. fn's error, or a failed commit, rolls
// the transaction back. MySQL commits DDL implicitly, so a rollback only
// undoes the data changes made since the last DDL statement.
func (e *Executor) Tx(ctx context.Context, fn func(q database.Queryer) error) error {
	return e.TxWith(ctx, nil, fn)
}

// TxWith is Tx with explicit options, e.g. a READ ONLY transaction.
func (e *Executor) TxWith(ctx context.Context, opts *sql.TxOptions, fn func(q database.Queryer) error) error {
	tx, err := e.db.BeginTx(ctx, opts)
	if err != nil {
		return dberrors.Classify(err, "BEGIN")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return dberrors.Classify(err, "COMMIT")
	}
	return nil
}

// Exec runs stmts in order in one transaction. The first failing statement
// rolls everything back and is returned classified.
func (e *Executor) Exec(ctx context.Context, operation string, stmts ...generator.Statement) (*Result, error) {
	res := &Result{OperationID: uuid.NewString(), Statements: stmts}
	start := time.Now()
	failed := -1

	err := e.Tx(ctx, func(q database.Queryer) error {
		for i, stmt := range stmts {
			e.logger.Debug("executing statement", "operation", operation, "sql", stmt.SQL)
			r, err := q.ExecContext(ctx, stmt.SQL, stmt.Args...)
			if err != nil {
				failed = i
				return dberrors.Classify(err, stmt.SQL)
			}
			if n, err := r.RowsAffected(); err == nil {
				res.RowsAffected += n
			}
			if id, err := r.LastInsertId(); err == nil && id > 0 {
				res.LastInsertID = id
			}
		}
		return nil
	})
	res.Duration = time.Since(start)

	if e.journal != nil {
		e.journal.RecordResult(ctx, operation, res, failed, err)
	}
	if err != nil {
		e.logger.Info("operation failed", "operation", operation, "operation_id", res.OperationID, "error", err)
		return nil, err
	}
	e.logger.Info("operation applied", "operation", operation, "operation_id", res.OperationID,
		"statements", len(stmts), "rows_affected", res.RowsAffected, "duration", res.Duration)
	return res, nil
}

// ResultSet holds a fully scanned query result. Each row is aligned with
// Columns, which may repeat a name (SELECT a.id, b.id ...). Rows keep driver
// values, except []byte which becomes string.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Records returns the rows keyed by column name. A repeated column name keeps
// its last value, so callers use it only for results with distinct names.
func (rs *ResultSet) Records() []map[string]any {
	out := make([]map[string]any, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		rec := make(map[string]any, len(rs.Columns))
		for i, c := range rs.Columns {
			rec[c] = r[i]
		}
		out = append(out, rec)
	}
	return out
}

// Query runs a read statement and scans every row.
func (e *Executor) Query(ctx context.Context, stmt generator.Statement) (*ResultSet, error) {
	return QueryWith(ctx, e.db, stmt)
}

// QueryWith is Query against any Queryer, a transaction included.
func QueryWith(ctx context.Context, q database.Queryer, stmt generator.Statement) (*ResultSet, error) {
	rows, err := q.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, dberrors.Classify(err, stmt.SQL)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	rs := &ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, dberrors.Classify(err, stmt.SQL)
	}
	return rs, nil
}
