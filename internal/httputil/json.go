// Package httputil provides JSON request/response helpers shared by the
// HTTP surface.
package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	svcerr "github.com/hashbridge/ledger-gateway/internal/errors"
)

// DecodeJSON reads a request body into target, rejecting unknown fields so
// unknown-shape input fails at the boundary.
func DecodeJSON(body io.Reader, target interface{}) error {
	dec := json.NewDecoder(io.LimitReader(body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// errorBody is the stable error envelope every failure is rendered as.
type errorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// WriteError renders err as a structured error response. Errors that are
// not ServiceErrors are masked as internal faults so raw driver or SDK text
// never reaches a caller on its own.
func WriteError(w http.ResponseWriter, err error) {
	svc := svcerr.GetServiceError(err)
	if svc == nil {
		svc = svcerr.Internal("unexpected error", err)
	}

	var body errorBody
	body.Error.Code = string(svc.Code)
	body.Error.Message = svc.Message
	body.Error.Details = svc.Details
	WriteJSON(w, svc.HTTPStatus, body)
}
