package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/ridoystarlord/tablesmith/config"
	"github.com/ridoystarlord/tablesmith/database"
	"github.com/ridoystarlord/tablesmith/logging"
	"github.com/ridoystarlord/tablesmith/workbench"
)

// session is one CLI invocation's connection and workbench.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	wb     *workbench.Workbench
}

// openSession loads configuration, connects and builds the workbench.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	db, err := database.Get(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("connected", "host", cfg.MySQL.Host, "database", cfg.MySQL.Database)

	return &session{
		cfg:    cfg,
		logger: logger,
		wb: workbench.New(db, workbench.Options{
			Database: cfg.MySQL.Database,
			Audit:    cfg.Audit,
			Logger:   logger,
		}),
	}, nil
}

func (s *session) Close() {
	database.Close()
}
