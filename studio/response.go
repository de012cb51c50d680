package studio

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ridoystarlord/tablesmith/dberrors"
	"github.com/ridoystarlord/tablesmith/schema"
	"github.com/ridoystarlord/tablesmith/validator"
	"github.com/ridoystarlord/tablesmith/workbench"
)

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Statement string `json:"statement,omitempty"`
	Hint      string `json:"hint,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Message: message, Data: data})
}

func created(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, Response{Status: "ok", Message: message, Data: data})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, Response{Status: "error", Error: msg, Kind: "bad_request"})
}

// failure maps err onto a status code and envelope. Order matters: a partial
// materialization wraps the constraint violation that stopped it.
func failure(err error) (int, Response) {
	body := Response{Status: "error", Error: err.Error()}

	var (
		partial      *dberrors.PartialMaterialization
		blocked      *dberrors.DependencyBlocked
		validation   *validator.ValidationError
		violation    *dberrors.ConstraintViolation
		connectivity *dberrors.ConnectivityError
	)
	switch {
	case errors.As(err, &partial):
		body.Kind = "partial_materialization"
		body.Statement = partial.Statement
		body.Details = map[string]any{
			"reference_table": partial.ReferenceTable,
			"completed":       partial.Completed,
			"failed":          partial.Failed,
		}
		return http.StatusInternalServerError, body
	case errors.As(err, &blocked):
		body.Kind = "dependency_blocked"
		body.Details = map[string]any{
			"dependencies": blocked.Dependencies,
			"unverified":   blocked.Unverified,
		}
		return http.StatusConflict, body
	case errors.As(err, &validation):
		body.Kind = string(validation.Kind)
		body.Details = validation
		return http.StatusBadRequest, body
	case errors.Is(err, schema.ErrTableNotFound):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, workbench.ErrAuditDisabled):
		body.Kind = "audit_disabled"
		return http.StatusNotFound, body
	case errors.As(err, &violation):
		body.Kind = string(violation.Category)
		body.Statement = violation.Statement
		body.Hint = violation.Hint
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &connectivity):
		body.Kind = "connectivity"
		body.Statement = connectivity.Statement
		return http.StatusServiceUnavailable, body
	default:
		body.Kind = "internal"
		return http.StatusInternalServerError, body
	}
}
