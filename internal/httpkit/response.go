// Package httpkit holds the HTTP plumbing shared by the reelforge API
// handlers: JSON decode/encode helpers, the error envelope, CORS, and
// Postgres error classification.
package httpkit

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the wire shape of every error response.
type ErrorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}

// DecodeJSON decodes the request body into v, rejecting unknown fields so
// client typos fail loudly instead of being silently dropped.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// WriteJSON writes body as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteErr writes an ErrorEnvelope response with the given status.
func WriteErr(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var env ErrorEnvelope
	env.Error.Code = code
	env.Error.Message = msg
	env.Error.Details = details

	_ = json.NewEncoder(w).Encode(env)
}
