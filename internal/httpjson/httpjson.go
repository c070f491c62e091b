// Package httpjson writes the JSON bodies shared by the handlers and the
// middleware, including the {"error","message","details"} envelope.
package httpjson

import (
	"encoding/json"
	"net/http"

	"taskManager/internal/logger"
)

type ErrorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func Write(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("HTTP: failed to write response", err)
	}
}

// Error writes the error envelope. A nil details map is sent as {}.
func Error(w http.ResponseWriter, code int, errorCode, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	Write(w, code, ErrorBody{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}
