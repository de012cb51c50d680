package runner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os/user"
	"sync"
	"time"

	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/logging"
)

const ActivityTable = "tablesmith_activity"

const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

const createActivityTable = "CREATE TABLE IF NOT EXISTS `" + ActivityTable + "` (" +
	"`id` BIGINT NOT NULL AUTO_INCREMENT, " +
	"`operation_id` CHAR(36) NOT NULL, " +
	"`executed_at` DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP, " +
	"`executed_by` VARCHAR(100), " +
	"`level` VARCHAR(10) NOT NULL, " +
	"`message` VARCHAR(255) NOT NULL, " +
	"`statement` TEXT, " +
	"`duration_ms` BIGINT, " +
	"PRIMARY KEY (`id`), KEY `idx_activity_operation` (`operation_id`)" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

const insertActivity = "INSERT INTO `" + ActivityTable + "` " +
	"(`operation_id`, `executed_by`, `level`, `message`, `statement`, `duration_ms`) VALUES (?, ?, ?, ?, ?, ?)"

const recentActivity = "SELECT `id`, `operation_id`, `executed_at`, `executed_by`, `level`, `message`, `statement`, `duration_ms` " +
	"FROM `" + ActivityTable + "` ORDER BY `id` DESC LIMIT ?"

// Activity is one journal entry.
type Activity struct {
	ID          int64         `json:"id"`
	OperationID string        `json:"operation_id"`
	ExecutedAt  time.Time     `json:"executed_at"`
	ExecutedBy  string        `json:"executed_by"`
	Level       string        `json:"level"`
	Message     string        `json:"message"`
	Statement   string        `json:"statement,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Journal appends to the activity table. Write failures are logged and
// swallowed: the journal never fails the operation it describes.
type Journal struct {
	db     database.Queryer
	logger *slog.Logger
	user   string

	once      sync.Once
	ensureErr error
}

func NewJournal(db database.Queryer, logger *slog.Logger) *Journal {
	return &Journal{db: db, logger: logging.OrDiscard(logger), user: currentUser()}
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

// Ensure creates the activity table if needed.
func (j *Journal) Ensure(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, createActivityTable); err != nil {
		return fmt.Errorf("creating %s: %w", ActivityTable, err)
	}
	return nil
}

// Record appends one entry.
func (j *Journal) Record(ctx context.Context, a Activity) {
	j.once.Do(func() { j.ensureErr = j.Ensure(ctx) })
	if j.ensureErr != nil {
		j.logger.Warn("activity journal unavailable", "error", j.ensureErr)
		return
	}
	if a.ExecutedBy == "" {
		a.ExecutedBy = j.user
	}
	var stmt sql.NullString
	if a.Statement != "" {
		stmt = sql.NullString{String: a.Statement, Valid: true}
	}
	if _, err := j.db.ExecContext(ctx, insertActivity,
		a.OperationID, a.ExecutedBy, a.Level, truncate(a.Message, 255), stmt, a.Duration.Milliseconds()); err != nil {
		j.logger.Warn("recording activity failed", "operation_id", a.OperationID, "error", err)
	}
}

// RecordResult journals each statement of an operation. failed is the index
// of the statement that failed, or -1.
func (j *Journal) RecordResult(ctx context.Context, operation string, res *Result, failed int, err error) {
	for i, stmt := range res.Statements {
		a := Activity{OperationID: res.OperationID, Statement: stmt.SQL, Duration: res.Duration}
		switch {
		case err == nil:
			a.Level, a.Message = LevelSuccess, operation
		case i == failed:
			a.Level, a.Message = LevelError, fmt.Sprintf("%s: %v", operation, err)
		case failed >= 0 && i > failed:
			continue
		default:
			a.Level, a.Message = LevelWarn, operation+": rolled back"
		}
		j.Record(ctx, a)
	}
	if err != nil && failed < 0 {
		j.Record(ctx, Activity{OperationID: res.OperationID, Level: LevelError, Message: fmt.Sprintf("%s: %v", operation, err), Duration: res.Duration})
	}
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, recentActivity, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var (
			a          Activity
			by, stmt   sql.NullString
			durationMs sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.OperationID, &a.ExecutedAt, &by, &a.Level, &a.Message, &stmt, &durationMs); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.ExecutedBy = by.String
		a.Statement = stmt.String
		a.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
