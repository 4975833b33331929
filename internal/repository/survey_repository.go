package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"survey-api/internal/domain"
	"survey-api/pkg/database"
)

const pgUniqueViolation = "23505"

// surveyRepository stores survey responses in PostgreSQL
type surveyRepository struct {
	db *database.PostgresDB
}

// NewSurveyRepository creates a PostgreSQL-backed survey repository
func NewSurveyRepository(db *database.PostgresDB) SurveyRepository {
	return &surveyRepository{db: db}
}

const selectSurveyColumns = `
	SELECT id, line_user_id, age_range, gender, discovery_channels, discovery_other,
	       price_range, brand_name, coupon_code, notification_sent_at,
	       submitted_at, created_at, updated_at
	FROM survey_responses
`

// Create inserts a survey response
func (r *surveyRepository) Create(ctx context.Context, record *domain.SurveyRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	query := `
		INSERT INTO survey_responses (
			id, line_user_id, age_range, gender, discovery_channels, discovery_other,
			price_range, brand_name, coupon_code, submitted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		record.ID,
		record.UserID,
		string(record.Answers.AgeRange),
		string(record.Answers.Gender),
		channelsToStrings(record.Answers.DiscoveryChannels),
		record.Answers.DiscoveryOther,
		string(record.Answers.PriceRange),
		record.Answers.BrandName,
		record.CouponCode,
		record.SubmittedAt,
	).Scan(&record.CreatedAt, &record.UpdatedAt)

	if err != nil {
		if dup := classifyPgError(err); dup != nil {
			return fmt.Errorf("failed to create survey response: %w: %w", dup, err)
		}
		return fmt.Errorf("failed to create survey response: %w", err)
	}

	return nil
}

// GetByUserID gets a survey response by LINE user ID
func (r *surveyRepository) GetByUserID(ctx context.Context, userID string) (*domain.SurveyRecord, error) {
	record, err := scanSurvey(r.db.Pool.QueryRow(ctx, selectSurveyColumns+` WHERE line_user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey response: %w", err)
	}
	return record, nil
}

// GetByCouponCode gets a survey response by coupon code
func (r *surveyRepository) GetByCouponCode(ctx context.Context, code string) (*domain.SurveyRecord, error) {
	record, err := scanSurvey(r.db.Pool.QueryRow(ctx, selectSurveyColumns+` WHERE coupon_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey response by coupon: %w", err)
	}
	return record, nil
}

// MarkNotified records a successful coupon push
func (r *surveyRepository) MarkNotified(ctx context.Context, userID string, sentAt time.Time) error {
	query := `
		UPDATE survey_responses
		SET notification_sent_at = $2, updated_at = NOW()
		WHERE line_user_id = $1 AND notification_sent_at IS NULL
	`

	if _, err := r.db.Pool.Exec(ctx, query, userID, sentAt); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (r *surveyRepository) Ping(ctx context.Context) error {
	return r.db.Health(ctx)
}

func scanSurvey(row pgx.Row) (*domain.SurveyRecord, error) {
	var (
		record   domain.SurveyRecord
		channels []string
		age      string
		gender   string
		price    string
	)

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&age,
		&gender,
		&channels,
		&record.Answers.DiscoveryOther,
		&price,
		&record.Answers.BrandName,
		&record.CouponCode,
		&record.NotificationSentAt,
		&record.SubmittedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Answers.AgeRange = domain.AgeRange(age)
	record.Answers.Gender = domain.Gender(gender)
	record.Answers.PriceRange = domain.PriceRange(price)
	record.Answers.DiscoveryChannels = stringsToChannels(channels)
	return &record, nil
}

// classifyPgError maps a unique violation to the matching sentinel.
// It returns nil for every other error.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return nil
	}

	switch pgErr.ConstraintName {
	case PostgresUserConstraint:
		return ErrDuplicateUser
	case PostgresCouponConstraint:
		return ErrDuplicateCoupon
	default:
		return nil
	}
}

func channelsToStrings(channels []domain.DiscoveryChannel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func stringsToChannels(values []string) []domain.DiscoveryChannel {
	out := make([]domain.DiscoveryChannel, len(values))
	for i, v := range values {
		out[i] = domain.DiscoveryChannel(v)
	}
	return out
}
