// Package apierr writes the JSON error bodies the widget client expects.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrNotConfigured is returned while the gateway is missing its upstream
// API key; every completion call fails with it until the key is set.
var ErrNotConfigured = errors.New("upstream API key is not configured")

type errorBody struct {
	Error string `json:"error"`
}

// Write sends a JSON error body of the form {"error": "<message>"} with the
// given status code.
func Write(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}
