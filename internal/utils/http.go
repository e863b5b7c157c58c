package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializes v and writes it with the given status code.
// Encoding failures after the header is written can only be logged by the
// caller's middleware; the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
