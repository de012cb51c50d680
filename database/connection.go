package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ridoystarlord/tablesmith/config"
	"github.com/ridoystarlord/tablesmith/dberrors"
)

// Queryer is what catalog reads and statement execution need; both *sql.DB
// and *sql.Tx satisfy it.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	db     *sql.DB
	dbOnce sync.Once
	dbErr  error
)

// DSN renders the driver connection string for cfg. An explicit DSN wins over
// the discrete fields.
func DSN(cfg config.MySQL) (string, error) {
	if cfg.DSN != "" {
		parsed, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		applyDriverOptions(parsed, cfg)
		return parsed.FormatDSN(), nil
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	applyDriverOptions(mc, cfg)
	return mc.FormatDSN(), nil
}

func applyDriverOptions(mc *mysql.Config, cfg config.MySQL) {
	mc.ParseTime = true
	mc.MultiStatements = false
	if cfg.Timeout > 0 {
		mc.Timeout = cfg.Timeout
	}
	if cfg.Database != "" && mc.DBName == "" {
		mc.DBName = cfg.Database
	}
}

// Open connects and pings. The handle keeps a single connection open: every
// operation is one synchronous round trip sequence on it.
func Open(ctx context.Context, cfg config.MySQL) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, dberrors.Connectivity("open", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, dberrors.Connectivity("ping", err)
	}
	return conn, nil
}

// Get returns the process-wide handle, opening it on first use from the
// loaded configuration.
func Get(ctx context.Context) (*sql.DB, error) {
	dbOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			dbErr = err
			return
		}
		db, dbErr = Open(ctx, cfg.MySQL)
	})
	return db, dbErr
}

// Close closes the process-wide handle (should be called on application shutdown)
func Close() {
	if db != nil {
		db.Close()
	}
}
