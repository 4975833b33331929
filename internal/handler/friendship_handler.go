package handler

import (
	"context"
	"net/http"
	"strconv"

	"survey-api/internal/domain"
	"survey-api/internal/middleware"
	"survey-api/internal/service/auth"
	"survey-api/pkg/errors"
	"survey-api/pkg/logger"
)

// FriendshipUseCase is the part of the friendship service the HTTP layer needs
type FriendshipUseCase interface {
	CheckFriendship(ctx context.Context, userID, accessToken string, refresh bool) (*domain.FriendshipStatus, error)
}

// FriendshipHandler reports whether the caller follows the official account
type FriendshipHandler struct {
	friendship FriendshipUseCase
	logger     *logger.Logger
}

// NewFriendshipHandler creates a new friendship handler
func NewFriendshipHandler(friendship FriendshipUseCase, log *logger.Logger) *FriendshipHandler {
	return &FriendshipHandler{
		friendship: friendship,
		logger:     log,
	}
}

// Check handles GET /api/line/friendship?refresh=true
func (h *FriendshipHandler) Check(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		respondError(w, r, h.logger, errors.NewAuthenticationError("Authentication required"))
		return
	}

	// The friendship API only accepts access tokens.
	token := middleware.GetToken(r.Context())
	if auth.IsIDToken(token) {
		respondError(w, r, h.logger, errors.NewValidationError("An access token is required to check friendship", nil))
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	status, err := h.friendship.CheckFriendship(r.Context(), user.UserID, token, refresh)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, status)
}
