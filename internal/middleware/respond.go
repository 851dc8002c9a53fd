package middleware

import (
	"encoding/json"
	"net/http"
)

// ErrorBody JSON body of every error response
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, kind, msg string) {
	_ = WriteJSON(w, status, ErrorBody{Error: msg, Kind: kind})
}

// WriteError writes {"error": msg, "kind": kind}
func WriteError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSONError(w, status, kind, msg)
}

// probe endpoints skip auth and rate limiting
func isProbePath(path string) bool {
	switch path {
	case "/health", "/healthz", "/readyz", "/livez", "/metrics":
		return true
	}
	return false
}
