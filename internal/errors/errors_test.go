package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/copyleftdev/newtonopt/internal/optimization"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"invalid argument", optimization.NewError(optimization.KindInvalidArgument, "bad"), http.StatusBadRequest},
		{"incompatible objective", optimization.NewError(optimization.KindIncompatibleObjective, "no hessian"), http.StatusBadRequest},
		{"evaluation", optimization.NewError(optimization.KindEvaluation, "nan"), http.StatusUnprocessableEntity},
		{"line search", optimization.NewError(optimization.KindLineSearch, "stuck"), http.StatusUnprocessableEntity},
		{"budget", optimization.NewError(optimization.KindMaximumIterations, "budget"), http.StatusUnprocessableEntity},
		{"linear solve", optimization.NewError(optimization.KindLinearSolve, "singular"), http.StatusUnprocessableEntity},
		{"wrapped", fmt.Errorf("run: %w", optimization.NewError(optimization.KindLinearSolve, "singular")), http.StatusUnprocessableEntity},
		{"explicit status", WithStatus(fmt.Errorf("no such run"), http.StatusNotFound), http.StatusNotFound},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestWrite(t *testing.T) {
	err := optimization.NewError(optimization.KindMaximumIterations, "maximum iterations (3) reached").
		WithOperation("FindMinimum").WithComponent("newton")

	rr := httptest.NewRecorder()
	Write(rr, err)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, err.Error(), resp.Error)
	assert.Equal(t, optimization.KindMaximumIterations.String(), resp.Kind)
	assert.Equal(t, "newton", resp.Component)
	assert.Equal(t, "FindMinimum", resp.Operation)
}

func TestWithStatusNil(t *testing.T) {
	assert.NoError(t, WithStatus(nil, http.StatusNotFound))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)

	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("objective exploded")
	}))

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/minimize?x=1", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp.Error)

	entries := logs.FilterMessage("Recovered from panic").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "objective exploded", fields["error"])
	assert.Equal(t, "/api/v1/minimize", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.NotEmpty(t, fields["stack"])
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
		logged bool
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel, false},
		{"client error", http.StatusBadRequest, zapcore.WarnLevel, true},
		{"unprocessable", http.StatusUnprocessableEntity, zapcore.WarnLevel, true},
		{"server error", http.StatusInternalServerError, zapcore.ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			handler := ErrorHandler(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.WriteHeader(http.StatusTeapot)
			}))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc", nil))

			if !tt.logged {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, int64(tt.status), entry.ContextMap()["status"])
		})
	}
}
