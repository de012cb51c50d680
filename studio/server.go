// Package studio serves the workbench as a JSON API.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/ridoystarlord/tablesmith/logging"
	"github.com/ridoystarlord/tablesmith/lookup"
	"github.com/ridoystarlord/tablesmith/nlsql"
	"github.com/ridoystarlord/tablesmith/runner"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/workbench"
)

// Service is the part of *workbench.Workbench the studio exposes.
type Service interface {
	Health(ctx context.Context) error
	Databases(ctx context.Context) ([]string, error)
	Tables(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, table string) (*schema.TableSnapshot, error)
	Browse(ctx context.Context, table string, limit, offset int) (*runner.ResultSet, error)
	Insert(ctx context.Context, table string, values map[string]any) (*runner.Result, error)
	Update(ctx context.Context, table string, pkValue any, values map[string]any) (*runner.Result, error)
	DeleteRow(ctx context.Context, table string, pkValue any) (*runner.Result, error)
	AddColumn(ctx context.Context, table string, col schema.Column) (*runner.Result, error)
	AddForeignKey(ctx context.Context, table string, fk schema.ForeignKey, widen bool) (*workbench.ForeignKeyResult, error)
	CreateCombobox(ctx context.Context, table, column string, seeds []string) (*lookup.Report, error)
	ComboboxOptions(ctx context.Context, table, column string) ([]schema.ReferenceOption, error)
	Suggest(ctx context.Context, text string) (*nlsql.Suggestion, error)
	Activity(ctx context.Context, limit int) ([]runner.Activity, error)
}

var _ Service = (*workbench.Workbench)(nil)

type Config struct {
	Service Service
	Port    string
	Logger  *slog.Logger
}

type Server struct {
	svc    Service
	port   string
	logger *slog.Logger
}

func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	return &Server{svc: cfg.Service, port: port, logger: logging.OrDiscard(cfg.Logger)}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/databases", s.handleDatabases)
		r.Get("/activity", s.handleActivity)
		r.Post("/suggest", s.handleSuggest)

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", s.handleTables)
			r.Route("/{table}", func(r chi.Router) {
				r.Get("/", s.handleDescribe)
				r.Get("/rows", s.handleBrowse)
				r.Post("/rows", s.handleInsert)
				r.Put("/rows/{pk}", s.handleUpdate)
				r.Delete("/rows/{pk}", s.handleDelete)
				r.Post("/columns", s.handleAddColumn)
				r.Post("/foreign-keys", s.handleAddForeignKey)
				r.Post("/combobox", s.handleCreateCombobox)
				r.Get("/combobox/{column}", s.handleComboboxOptions)
				r.Get("/export", s.handleExport)
			})
		})
	})
	return r
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("studio listening", "addr", "http://localhost:"+s.port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("studio server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Debug("shutting down studio")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
