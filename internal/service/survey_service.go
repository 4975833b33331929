package service

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"survey-api/internal/coupon"
	"survey-api/internal/domain"
	"survey-api/internal/metrics"
	"survey-api/internal/repository"
	"survey-api/pkg/errors"
	"survey-api/pkg/logger"
)

const (
	// DefaultMaxInsertAttempts bounds how many coupon codes are tried per submission.
	DefaultMaxInsertAttempts = 5
	// DefaultNotificationTimeout bounds a single coupon push.
	DefaultNotificationTimeout = 10 * time.Second
)

// ErrCouponSpaceExhausted is returned when every insert attempt collided on the coupon code.
var ErrCouponSpaceExhausted = stderrors.New("coupon code collided on every attempt")

// SurveyOptions tunes SurveyService. Zero values use the defaults.
type SurveyOptions struct {
	MaxInsertAttempts   int
	NotificationTimeout time.Duration
	Now                 func() time.Time
}

// SurveyService owns the submission and coupon issuance workflow
type SurveyService struct {
	repo                repository.SurveyRepository
	notifier            NotificationSender
	coupons             CouponGenerator
	metrics             *metrics.Metrics
	logger              *logger.Logger
	maxInsertAttempts   int
	notificationTimeout time.Duration
	now                 func() time.Time
}

// NewSurveyService creates a survey service
func NewSurveyService(
	repo repository.SurveyRepository,
	notifier NotificationSender,
	coupons CouponGenerator,
	m *metrics.Metrics,
	log *logger.Logger,
	opts SurveyOptions,
) *SurveyService {
	s := &SurveyService{
		repo:                repo,
		notifier:            notifier,
		coupons:             coupons,
		metrics:             m,
		logger:              log,
		maxInsertAttempts:   opts.MaxInsertAttempts,
		notificationTimeout: opts.NotificationTimeout,
		now:                 opts.Now,
	}
	if s.maxInsertAttempts <= 0 {
		s.maxInsertAttempts = DefaultMaxInsertAttempts
	}
	if s.notificationTimeout <= 0 {
		s.notificationTimeout = DefaultNotificationTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s
}

// Submit stores the answers of userID and returns its coupon.
// A user who already submitted gets the existing coupon back with Created=false,
// and nothing is written or pushed.
func (s *SurveyService) Submit(ctx context.Context, userID string, answers domain.Answers) (*domain.SubmitResult, error) {
	if err := validateUserID(userID); err != nil {
		s.metrics.Submissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	answers.Normalize()
	if err := domain.ValidateAnswers(&answers); err != nil {
		s.metrics.Submissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, answersValidationError(err)
	}

	log := s.logger.WithField("user_id", userID)

	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		s.metrics.Submissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.WithError(err).Error("Failed to check existing submission")
		return nil, errors.NewInternalError("Failed to check existing submission", err)
	}
	if existing != nil {
		s.metrics.Submissions.WithLabelValues(metrics.OutcomeExisting).Inc()
		log.Debug("Survey already submitted, returning existing coupon")
		return &domain.SubmitResult{CouponCode: existing.CouponCode, Created: false}, nil
	}

	record, err := s.insert(ctx, userID, answers)
	if err != nil {
		var raced *raceLostError
		if stderrors.As(err, &raced) {
			s.metrics.Submissions.WithLabelValues(metrics.OutcomeRace).Inc()
			log.Info("Concurrent submission won the insert, returning its coupon")
			return &domain.SubmitResult{CouponCode: raced.winner.CouponCode, Created: false}, nil
		}
		s.metrics.Submissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.WithError(err).Error("Failed to create survey response")
		return nil, err
	}

	s.metrics.Submissions.WithLabelValues(metrics.OutcomeCreated).Inc()
	log.Info("Survey response created", zap.String("coupon_code", record.CouponCode))

	s.notify(ctx, record)

	return &domain.SubmitResult{CouponCode: record.CouponCode, Created: true}, nil
}

// raceLostError carries the record of a concurrent submission that committed first.
type raceLostError struct {
	winner *domain.SurveyRecord
}

func (e *raceLostError) Error() string { return "survey already submitted by a concurrent request" }

// insert creates the record, generating a fresh coupon after each coupon collision.
func (s *SurveyService) insert(ctx context.Context, userID string, answers domain.Answers) (*domain.SurveyRecord, error) {
	for attempt := 1; attempt <= s.maxInsertAttempts; attempt++ {
		code, err := s.coupons.Generate()
		if err != nil {
			return nil, errors.NewInternalError("Failed to generate coupon code", err)
		}

		record := &domain.SurveyRecord{
			UserID:      userID,
			Answers:     answers,
			CouponCode:  code,
			SubmittedAt: s.now().UTC(),
		}

		err = s.repo.Create(ctx, record)
		switch {
		case err == nil:
			return record, nil

		case stderrors.Is(err, repository.ErrDuplicateUser):
			winner, readErr := s.repo.GetByUserID(ctx, userID)
			if readErr != nil {
				return nil, errors.NewInternalError("Failed to read concurrent submission", readErr)
			}
			if winner == nil {
				return nil, errors.NewInternalError("Concurrent submission not found after duplicate insert", err)
			}
			return nil, &raceLostError{winner: winner}

		case stderrors.Is(err, repository.ErrDuplicateCoupon):
			s.metrics.CouponCollisions.Inc()
			s.logger.WithFields(map[string]interface{}{
				"user_id": userID,
				"attempt": attempt,
			}).Warn("Coupon code collision, regenerating")

		default:
			return nil, errors.NewInternalError("Failed to save survey response", err)
		}
	}

	return nil, errors.NewInternalError("Could not complete submission", ErrCouponSpaceExhausted)
}

// notify pushes the coupon once on a context that outlives the request.
// Failures are logged and counted, never returned.
func (s *SurveyService) notify(ctx context.Context, record *domain.SurveyRecord) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notificationTimeout)
	defer cancel()

	log := s.logger.WithField("user_id", record.UserID)

	if err := s.notifier.Deliver(ctx, record.UserID, record.CouponCode); err != nil {
		s.metrics.NotificationFailures.Inc()
		log.WithError(err).Warn("Failed to deliver coupon notification")
		return
	}
	s.metrics.NotificationsSent.Inc()

	sentAt := s.now().UTC()
	if err := s.repo.MarkNotified(ctx, record.UserID, sentAt); err != nil {
		log.WithError(err).Warn("Coupon delivered but notification timestamp not saved")
		return
	}
	record.NotificationSentAt = &sentAt
}

// validateUserID rejects empty IDs and IDs with surrounding whitespace.
// The ID is used exactly as the identity provider issued it.
func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.NewValidationError("User ID is required", nil)
	}
	if strings.TrimSpace(userID) != userID {
		return errors.NewValidationError("User ID must not contain surrounding whitespace", nil)
	}
	return nil
}

// GetStatus reports whether userID has already submitted.
func (s *SurveyService) GetStatus(ctx context.Context, userID string) (*domain.SubmissionStatus, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to get submission status", err)
	}
	if record == nil {
		return &domain.SubmissionStatus{AlreadySubmitted: false}, nil
	}

	submittedAt := record.SubmittedAt
	return &domain.SubmissionStatus{
		AlreadySubmitted: true,
		CouponCode:       record.CouponCode,
		SubmittedAt:      &submittedAt,
	}, nil
}

// LookupCoupon reports whether code is well formed and issued.
// Malformed codes never reach storage.
func (s *SurveyService) LookupCoupon(ctx context.Context, code string) (*domain.CouponInfo, error) {
	normalized := coupon.Normalize(code)
	info := &domain.CouponInfo{Code: normalized}
	if !coupon.Valid(normalized) {
		return info, nil
	}
	info.Valid = true

	record, err := s.repo.GetByCouponCode(ctx, normalized)
	if err != nil {
		return nil, errors.NewInternalError("Failed to look up coupon", err)
	}
	if record == nil {
		return info, nil
	}

	issuedAt := record.SubmittedAt
	info.Issued = true
	info.IssuedAt = &issuedAt
	info.NotificationSent = record.NotificationSentAt != nil
	return info, nil
}

func answersValidationError(err error) *errors.AppError {
	var stepErr *domain.StepError
	if stderrors.As(err, &stepErr) {
		return errors.NewValidationError("Invalid survey answers", map[string]interface{}{
			"step":   stepErr.Step.String(),
			"field":  stepErr.Field,
			"reason": stepErr.Reason,
		})
	}
	return errors.NewValidationError("Invalid survey answers", map[string]interface{}{"reason": err.Error()})
}
