package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	apierrors "github.com/copyleftdev/newtonopt/internal/errors"
	"github.com/copyleftdev/newtonopt/internal/logging"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeRunNotFound    = -32001
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// runParams identifies a stored run.
type runParams struct {
	RunID string `json:"run_id"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
//
// Methods:
//   - newton.minimize: params MinimizeRequest, result Run. A failed
//     minimization is a successful call whose run has status "failed".
//   - newton.status: params {"run_id"}, result Run.
//   - newton.delete: params {"run_id"}, result {"deleted": true}.
//   - functions.list: no params, result the registered definitions.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, r, codeParseError, "Parse error", nil, nil)
		return
	}

	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, r, codeInvalidRequest, "Invalid Request", request.ID, nil)
		return
	}

	var result interface{}

	switch request.Method {
	case "newton.minimize":
		var params MinimizeRequest
		if err := decodeParams(request.Params, &params); err != nil {
			s.respondWithError(w, r, codeInvalidParams, "Invalid params", request.ID, err.Error())
			return
		}
		ctx, cancel := s.requestContext(r)
		defer cancel()
		run, err := s.minimize(ctx, &params)
		if err != nil {
			s.respondWithServiceError(w, r, request.ID, err)
			return
		}
		result = run

	case "newton.status", "newton.delete":
		var params runParams
		if err := decodeParams(request.Params, &params); err != nil || params.RunID == "" {
			s.respondWithError(w, r, codeInvalidParams, "Invalid params", request.ID, "run_id is required")
			return
		}
		if request.Method == "newton.status" {
			run, ok := s.runs.get(params.RunID)
			if !ok {
				s.respondWithError(w, r, codeRunNotFound, "Run not found", request.ID, params.RunID)
				return
			}
			result = run
		} else {
			if !s.runs.delete(params.RunID) {
				s.respondWithError(w, r, codeRunNotFound, "Run not found", request.ID, params.RunID)
				return
			}
			result = map[string]bool{"deleted": true}
		}

	case "functions.list":
		result = s.registry.Definitions()

	default:
		s.respondWithError(w, r, codeMethodNotFound, "Method not found", request.ID, nil)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      request.ID,
		Result:  result,
	})
}

// decodeParams accepts params either as an object or as an array whose
// first element is the object. Absent params decode to the zero value.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			return nil
		}
		if len(list) > 1 {
			return fmt.Errorf("expected a single parameter object, got %d", len(list))
		}
		raw = list[0]
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondWithServiceError maps err to invalid params for caller mistakes
// and to a server error otherwise.
func (s *Server) respondWithServiceError(w http.ResponseWriter, r *http.Request, id interface{}, err error) {
	code, message := codeServerError, "Server error"
	if apierrors.StatusOf(err) == http.StatusBadRequest {
		code, message = codeInvalidParams, "Invalid params"
	}
	s.respondWithError(w, r, code, message, id, apierrors.NewResponse(err))
}

// respondWithError sends a JSON-RPC 2.0 error response.
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, id interface{}, data interface{}) {
	logging.FromContext(r.Context()).Warn("JSON-RPC error",
		zap.Int("code", code),
		zap.String("message", message),
	)

	apierrors.WriteJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &rpcError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}
