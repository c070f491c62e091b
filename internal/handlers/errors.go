package handlers

import (
	"errors"
	"net/http"

	"taskManager/internal/logger"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

const (
	codeInternal        = "INTERNAL_ERROR"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// handleError writes the response for any error returned by request parsing
// or the service.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, err) {
		return
	}

	if errors.Is(err, errBodyTooLarge) {
		logger.Warn("HTTP: request body too large",
			zap.String("operation", operation),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge, "Request body must not exceed 1 MiB", nil)
		return
	}

	logger.Error("HTTP: service error", err,
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, codeInternal, "Internal server error", nil)
}

func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: business error",
		zap.String("error_code", businessErr.Code),
		zap.String("message", businessErr.Message),
		zap.Int("http_status", statusCode))

	responseWithError(w, statusCode, businessErr.Code, businessErr.Message, businessErr.Details)
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
