package repository

import (
	"context"
	"errors"
	"time"

	"survey-api/internal/domain"
)

// Unique violations reported by Create. Implementations wrap them, so use errors.Is.
var (
	ErrDuplicateUser   = errors.New("survey already submitted for user")
	ErrDuplicateCoupon = errors.New("coupon code already issued")
)

// SurveyRepository defines the interface for survey response storage
type SurveyRepository interface {
	// Create inserts a new record. It fails with ErrDuplicateUser or
	// ErrDuplicateCoupon when a unique constraint rejects the row.
	Create(ctx context.Context, record *domain.SurveyRecord) error

	// GetByUserID returns the record of a user, or nil if there is none
	GetByUserID(ctx context.Context, userID string) (*domain.SurveyRecord, error)

	// GetByCouponCode returns the record holding a coupon code, or nil if there is none
	GetByCouponCode(ctx context.Context, code string) (*domain.SurveyRecord, error)

	// MarkNotified stamps NotificationSentAt if it is not set yet
	MarkNotified(ctx context.Context, userID string, sentAt time.Time) error

	// Ping checks the storage connection
	Ping(ctx context.Context) error
}
