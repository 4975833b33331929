package handler

import (
	"encoding/json"
	"net/http"

	"survey-api/internal/middleware"
	"survey-api/pkg/errors"
	"survey-api/pkg/logger"
)

// SuccessResponse is the envelope of every successful JSON response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data}); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	middleware.WriteError(w, r, errors.AsAppError(err), log)
}

// NotFound answers unknown routes with the JSON error envelope
func NotFound(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, errors.NewNotFoundError("Endpoint not found"), log)
	}
}

// MethodNotAllowed answers known routes called with the wrong method
func MethodNotAllowed(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, &errors.AppError{
			Type:       errors.ErrorTypeValidation,
			Message:    "Method not allowed",
			StatusCode: http.StatusMethodNotAllowed,
		}, log)
	}
}
