package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"survey-api/internal/domain"
	"survey-api/internal/middleware"
	"survey-api/pkg/errors"
	"survey-api/pkg/logger"
)

// maxSurveyBodyBytes caps the request body of a submission
const maxSurveyBodyBytes = 64 << 10

// SurveyUseCase is the part of the survey service the HTTP layer needs
type SurveyUseCase interface {
	Submit(ctx context.Context, userID string, answers domain.Answers) (*domain.SubmitResult, error)
	GetStatus(ctx context.Context, userID string) (*domain.SubmissionStatus, error)
	LookupCoupon(ctx context.Context, code string) (*domain.CouponInfo, error)
}

// SurveyHandler serves survey submission, status and coupon lookup
type SurveyHandler struct {
	survey SurveyUseCase
	logger *logger.Logger
}

// NewSurveyHandler creates a new survey handler
func NewSurveyHandler(survey SurveyUseCase, log *logger.Logger) *SurveyHandler {
	return &SurveyHandler{
		survey: survey,
		logger: log,
	}
}

// Submit handles POST /api/survey
func (h *SurveyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		respondError(w, r, h.logger, errors.NewAuthenticationError("Authentication required"))
		return
	}

	var answers domain.Answers
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSurveyBodyBytes))
	if err := decoder.Decode(&answers); err != nil {
		respondError(w, r, h.logger, errors.NewValidationError("Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		}))
		return
	}

	result, err := h.survey.Submit(r.Context(), user.UserID, answers)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondJSON(w, h.logger, status, result)
}

// GetStatus handles GET /api/survey/status
func (h *SurveyHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		respondError(w, r, h.logger, errors.NewAuthenticationError("Authentication required"))
		return
	}

	status, err := h.survey.GetStatus(r.Context(), user.UserID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, status)
}

// LookupCoupon handles GET /api/admin/coupons/{code}
func (h *SurveyHandler) LookupCoupon(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		respondError(w, r, h.logger, errors.NewValidationError("Coupon code is required", nil))
		return
	}

	info, err := h.survey.LookupCoupon(r.Context(), code)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, info)
}
