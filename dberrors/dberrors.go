// Package dberrors classifies database failures into the small set of kinds
// the tool reports to users: connectivity, constraint violations, blocked
// deletes and partially applied composite operations.
package dberrors

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/ridoystarlord/tablesmith/schema"
)

// ConnectivityError means the server could not be reached or refused the login.
// It is never retried.
type ConnectivityError struct {
	Op        string
	Statement string
	Err       error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach database (%s): %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Category groups constraint violations for user-facing messages.
type Category string

const (
	CategoryDuplicateKey Category = "duplicate_key"
	CategoryForeignKey   Category = "foreign_key"
	CategoryTypeLength   Category = "type_length"
	CategoryUnknown      Category = "unknown"
)

var hints = map[Category]string{
	CategoryDuplicateKey: "This value already exists in a unique column. Check the existing rows or choose another value.",
	CategoryForeignKey:   "The row points at (or is pointed at by) a row in another table. Create or remove the related row first, or change the foreign key's ON DELETE rule.",
	CategoryTypeLength:   "A value does not fit the column: check its length, numeric range, date format (YYYY-MM-DD) and whether the column accepts NULL.",
	CategoryUnknown:      "The database rejected the statement. Review the statement and the server message.",
}

// ConstraintViolation is a statement the database rejected after validation passed.
type ConstraintViolation struct {
	Category  Category
	Code      uint16
	Statement string
	Hint      string
	Err       error
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("%s violation: %v", e.Category, e.Err)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// DependencyBlocked refuses a delete before it reaches the database, either
// because other rows reference the target or because that could not be verified.
type DependencyBlocked struct {
	Table        string
	Column       string
	Value        any
	Dependencies []schema.Dependency
	Unverified   bool
	Err          error
}

func (e *DependencyBlocked) Error() string {
	target := e.Table
	if e.Column != "" {
		target = fmt.Sprintf("%s.%s = %v", e.Table, e.Column, e.Value)
	}
	if e.Unverified {
		return fmt.Sprintf("cannot verify dependencies of %s, refusing to delete: %v", target, e.Err)
	}
	deps := make([]string, 0, len(e.Dependencies))
	for _, d := range e.Dependencies {
		deps = append(deps, d.String())
	}
	return fmt.Sprintf("cannot delete %s: referenced by %s", target, strings.Join(deps, ", "))
}

func (e *DependencyBlocked) Unwrap() error { return e.Err }

// PartialMaterialization reports a composite operation that stopped part way.
// Completed lists the steps that were applied and are still in effect.
type PartialMaterialization struct {
	ReferenceTable string
	Completed      []string
	Failed         string
	Statement      string
	Err            error
}

func (e *PartialMaterialization) Error() string {
	done := "none"
	if len(e.Completed) > 0 {
		done = strings.Join(e.Completed, ", ")
	}
	return fmt.Sprintf("lookup table %s partially created: step %q failed after [%s]: %v", e.ReferenceTable, e.Failed, done, e.Err)
}

func (e *PartialMaterialization) Unwrap() error { return e.Err }

var (
	duplicateCodes  = map[uint16]bool{1062: true, 1586: true}
	foreignKeyCodes = map[uint16]bool{1215: true, 1216: true, 1217: true, 1451: true, 1452: true, 1822: true, 3780: true}
	typeLengthCodes = map[uint16]bool{1048: true, 1264: true, 1265: true, 1292: true, 1366: true, 1406: true}
	// access denied for database, access denied for user, unknown database
	connectivityCodes = map[uint16]bool{1044: true, 1045: true, 1049: true}
)

// Classify maps a driver error raised by statement into the taxonomy. Errors
// that are already classified, and validation errors, pass through unchanged.
func Classify(err error, statement string) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if connectivityCodes[myErr.Number] {
			return &ConnectivityError{Op: "login", Statement: statement, Err: err}
		}
		return newViolation(categoryForCode(myErr.Number, myErr.Message), myErr.Number, statement, err)
	}

	if isConnectivity(err) {
		return &ConnectivityError{Op: "query", Statement: statement, Err: err}
	}
	return newViolation(categoryForMessage(err.Error()), 0, statement, err)
}

// IsClassified reports whether err already belongs to the taxonomy.
func IsClassified(err error) bool {
	var (
		ce *ConnectivityError
		cv *ConstraintViolation
		db *DependencyBlocked
		pm *PartialMaterialization
	)
	return errors.As(err, &ce) || errors.As(err, &cv) || errors.As(err, &db) || errors.As(err, &pm)
}

func newViolation(cat Category, code uint16, statement string, err error) *ConstraintViolation {
	return &ConstraintViolation{
		Category:  cat,
		Code:      code,
		Statement: statement,
		Hint:      hints[cat],
		Err:       err,
	}
}

func categoryForCode(code uint16, message string) Category {
	switch {
	case duplicateCodes[code]:
		return CategoryDuplicateKey
	case foreignKeyCodes[code]:
		return CategoryForeignKey
	case typeLengthCodes[code]:
		return CategoryTypeLength
	}
	return categoryForMessage(message)
}

func categoryForMessage(msg string) Category {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "duplicate entry"):
		return CategoryDuplicateKey
	case strings.Contains(m, "foreign key constraint"):
		return CategoryForeignKey
	case strings.Contains(m, "data too long"),
		strings.Contains(m, "out of range"),
		strings.Contains(m, "cannot be null"),
		strings.Contains(m, "incorrect") && strings.Contains(m, "value"):
		return CategoryTypeLength
	}
	return CategoryUnknown
}

func isConnectivity(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	m := strings.ToLower(err.Error())
	return strings.Contains(m, "connection refused") ||
		strings.Contains(m, "no such host") ||
		strings.Contains(m, "i/o timeout") ||
		strings.Contains(m, "broken pipe")
}

// Connectivity wraps err as a ConnectivityError for op.
func Connectivity(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnectivityError{Op: op, Err: err}
}

// StatementOf returns the statement attached to a classified error, if any.
func StatementOf(err error) string {
	var (
		ce *ConnectivityError
		cv *ConstraintViolation
		pm *PartialMaterialization
	)
	switch {
	case errors.As(err, &cv):
		return cv.Statement
	case errors.As(err, &pm):
		return pm.Statement
	case errors.As(err, &ce):
		return ce.Statement
	}
	return ""
}
