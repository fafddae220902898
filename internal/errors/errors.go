// Package errors maps minimization failures onto HTTP responses and recovers
// from handler panics.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

// Response is the JSON body written for a failed request.
type Response struct {
	// Error is the human-readable message.
	Error string `json:"error"`
	// Kind is the optimization error kind, when the failure has one.
	Kind string `json:"kind,omitempty"`
	// Component and Operation locate the failure inside the minimizer.
	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// HTTPError is an error carrying the status it should be reported with.
type HTTPError struct {
	Status int
	Err    error
}

func (e *HTTPError) Error() string { return e.Err.Error() }

func (e *HTTPError) Unwrap() error { return e.Err }

// WithStatus attaches status to err.
func WithStatus(err error, status int) error {
	if err == nil {
		return nil
	}
	return &HTTPError{Status: status, Err: err}
}

// StatusOf returns the HTTP status for err. Caller mistakes map to 400,
// numerical failures of a well-formed request to 422, anything else to 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var he *HTTPError
	if stderrors.As(err, &he) {
		return he.Status
	}
	switch optimization.KindOf(err) {
	case optimization.KindInvalidArgument, optimization.KindIncompatibleObjective:
		return http.StatusBadRequest
	case optimization.KindEvaluation,
		optimization.KindLineSearch,
		optimization.KindMaximumIterations,
		optimization.KindLinearSolve,
		optimization.KindUnsupportedCapability:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NewResponse builds the response body for err.
func NewResponse(err error) Response {
	resp := Response{Error: err.Error()}
	if e, ok := optimization.IsOptimizationError(err); ok {
		resp.Kind = e.Kind.String()
		resp.Component = e.Component
		resp.Operation = e.Op
	}
	return resp
}

// Write writes err as JSON with the status from StatusOf.
func Write(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusOf(err), NewResponse(err))
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
