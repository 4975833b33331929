package service

import (
	"context"
	"sync"

	"survey-api/pkg/logger"
)

// NoopSender accepts every delivery without sending anything.
type NoopSender struct {
	logger *logger.Logger
}

// NewNoopSender creates a sender that only logs
func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{logger: log}
}

// Deliver implements NotificationSender
func (s *NoopSender) Deliver(ctx context.Context, userID, couponCode string) error {
	if s.logger != nil {
		s.logger.WithField("user_id", userID).Debug("Notification sending disabled, skipping coupon push")
	}
	return nil
}

// Delivery is one call recorded by RecordingSender.
type Delivery struct {
	UserID     string
	CouponCode string
}

// RecordingSender keeps every delivery in memory and can be told to fail.
type RecordingSender struct {
	mu         sync.Mutex
	deliveries []Delivery
	err        error
}

// NewRecordingSender creates an empty recording sender
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

// Deliver implements NotificationSender. Failed attempts are recorded too.
func (s *RecordingSender) Deliver(ctx context.Context, userID, couponCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries = append(s.deliveries, Delivery{UserID: userID, CouponCode: couponCode})
	return s.err
}

// FailWith makes subsequent deliveries return err. Pass nil to succeed again.
func (s *RecordingSender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Deliveries returns a copy of the recorded deliveries
func (s *RecordingSender) Deliveries() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}
