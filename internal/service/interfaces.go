package service

import (
	"context"

	"survey-api/internal/domain"
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	// ValidateToken verifies a LINE ID token or access token and returns the user behind it
	ValidateToken(ctx context.Context, token string) (*domain.LineProfile, error)
}

// NotificationSender delivers an issued coupon to a user out of band.
// Only success or failure is observed by the caller.
type NotificationSender interface {
	Deliver(ctx context.Context, userID, couponCode string) error
}

// FriendshipChecker asks LINE whether the owner of an access token has
// added the official account as a friend
type FriendshipChecker interface {
	GetFriendship(ctx context.Context, accessToken string) (bool, error)
}

// CouponGenerator produces candidate coupon codes
type CouponGenerator interface {
	Generate() (string, error)
}

// Services aggregates all service interfaces
type Services struct {
	Auth       AuthService
	Survey     *SurveyService
	Friendship *FriendshipService
	RateLimit  *RateLimiter
}
