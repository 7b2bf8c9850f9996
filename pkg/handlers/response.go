package handlers

import (
	"net/http"

	"github.com/goccy/go-json"
)

const contentTypeJSON = "application/json"

// WriteJSON encodes data as the JSON response body and returns any encoding
// error. A 200 status stays implicit so the encoder can write the header
// itself.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a machine-readable error code plus a human-readable
// message as the JSON response body.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}
