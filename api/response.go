// Package api exposes the metadata store's service layer as an HTTP
// surface: a gorilla/mux router over spec.md section 6.1's RPC methods,
// a tenant/trust header shim standing in for the real auth system, and
// the section 6.1 error-code table as an HTTP status mapping.
package api

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes payload as the JSON response body with code as the
// HTTP status.
func RespondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// RespondError writes a {"error": message} JSON body with code as the
// HTTP status.
func RespondError(w http.ResponseWriter, code int, message string) {
	RespondJSON(w, code, map[string]string{"error": message})
}

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
