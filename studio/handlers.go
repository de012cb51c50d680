package studio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ridoystarlord/tablesmith/export"
	"github.com/ridoystarlord/tablesmith/schema"
)

const defaultPageSize = 50

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := failure(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request refused", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// normalizeNumbers turns json.Number into int64 or float64 so the driver
// binds them as numbers.
func normalizeNumbers(values map[string]any) map[string]any {
	for k, v := range values {
		n, isNumber := v.(json.Number)
		if !isNumber {
			continue
		}
		if i, err := n.Int64(); err == nil {
			values[k] = i
		} else if f, err := n.Float64(); err == nil {
			values[k] = f
		} else {
			values[k] = n.String()
		}
	}
	return values
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Health(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "database reachable", nil)
}

func (s *Server) handleDatabases(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.svc.Databases(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", map[string]any{"databases": dbs})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.svc.Tables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", map[string]any{"tables": tables})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Describe(r.Context(), chi.URLParam(r, "table"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", snap)
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rs, err := s.svc.Browse(r.Context(), chi.URLParam(r, "table"), limit, offset)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", map[string]any{"columns": rs.Columns, "rows": rs.Records(), "limit": limit, "offset": offset})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decode(r, &values); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.svc.Insert(r.Context(), chi.URLParam(r, "table"), normalizeNumbers(values))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "row inserted", res)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if err := decode(r, &values); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.svc.Update(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "pk"), normalizeNumbers(values))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, fmt.Sprintf("%d row(s) updated", res.RowsAffected), res)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.DeleteRow(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "pk"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, fmt.Sprintf("%d row(s) deleted", res.RowsAffected), res)
}

func (s *Server) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var col schema.Column
	if err := decode(r, &col); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.svc.AddColumn(r.Context(), chi.URLParam(r, "table"), col)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "column added", res)
}

type foreignKeyRequest struct {
	schema.ForeignKey
	Widen bool `json:"widen"`
}

func (s *Server) handleAddForeignKey(w http.ResponseWriter, r *http.Request) {
	var req foreignKeyRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.svc.AddForeignKey(r.Context(), chi.URLParam(r, "table"), req.ForeignKey, req.Widen)
	if err != nil {
		status, body := failure(err)
		if res != nil {
			body.Details = map[string]any{"plan": res.Plan}
		}
		writeJSON(w, status, body)
		return
	}
	created(w, "foreign key added", res)
}

type comboboxRequest struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

func (s *Server) handleCreateCombobox(w http.ResponseWriter, r *http.Request) {
	var req comboboxRequest
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	report, err := s.svc.CreateCombobox(r.Context(), chi.URLParam(r, "table"), req.Column, req.Values)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, "combobox created", report)
}

func (s *Server) handleComboboxOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.svc.ComboboxOptions(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "column"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", map[string]any{"options": opts})
}

// handleExport streams every row of the table as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatCSV
	}
	rs, err := s.svc.Browse(r.Context(), table, 0, 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Render(&buf, rs, export.Options{Format: format, Table: table}); err != nil {
		badRequest(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", table, export.Extension(format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Text == "" {
		badRequest(w, "text is required")
		return
	}
	suggestion, err := s.svc.Suggest(r.Context(), req.Text)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "draft only: review before running", suggestion)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	entries, err := s.svc.Activity(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, "", map[string]any{"activity": entries})
}
