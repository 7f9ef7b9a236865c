package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ai-chat/internal/apperr"
	"ai-chat/internal/logger"
	"ai-chat/internal/service/embedding"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Fields lists the failing fields of a validation error
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

// sendError sends a standardized JSON error response
func sendError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:    status,
		Message: message,
	}
	if err != nil {
		errResp.Error = err.Error()
		var verr *apperr.ValidationError
		if errors.As(err, &verr) {
			errResp.Fields = verr.Fields
		}
	}
	json.NewEncoder(w).Encode(errResp)
}

// statusFor maps an error kind to its HTTP status and message.
func statusFor(err error) (int, string) {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest, "Validation failed"
	case apperr.IsNotFound(err):
		return http.StatusNotFound, "Not found"
	case apperr.IsConflict(err):
		return http.StatusConflict, "Already exists"
	case apperr.IsProvider(err):
		return http.StatusBadGateway, "LLM provider error"
	case apperr.IsConfiguration(err), errors.Is(err, embedding.ErrDisabled):
		return http.StatusServiceUnavailable, "Service not configured"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// sendAppError sends err with the status of its kind.
func sendAppError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Log.WithError(err).WithField("status", status).Error(message)
	}
	sendError(w, status, message, err)
}
