package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"survey-api/internal/domain"
	"survey-api/pkg/logger"
)

const mongoDuplicateKey = 11000

type surveyDocument struct {
	ID                 string         `bson:"_id"`
	LineUserID         string         `bson:"lineUserId"`
	Answers            domain.Answers `bson:"answers"`
	CouponCode         string         `bson:"couponCode"`
	NotificationSentAt *time.Time     `bson:"notificationSentAt,omitempty"`
	SubmittedAt        time.Time      `bson:"submittedAt"`
	CreatedAt          time.Time      `bson:"createdAt"`
	UpdatedAt          time.Time      `bson:"updatedAt"`
}

// MongoSurveyRepository stores survey responses in a MongoDB collection
type MongoSurveyRepository struct {
	collection *mongo.Collection
	now        func() time.Time
	logger     *logger.Logger
}

// NewMongoSurveyRepository binds the survey_responses collection of db
func NewMongoSurveyRepository(db *mongo.Database, log *logger.Logger) *MongoSurveyRepository {
	if log == nil {
		log = logger.NewNop()
	}
	return &MongoSurveyRepository{
		collection: db.Collection(SurveyTable),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     log,
	}
}

// SurveyIndexes are the unique indexes the collection relies on.
func SurveyIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "lineUserId", Value: 1}},
			Options: options.Index().SetName(MongoUserIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "couponCode", Value: 1}},
			Options: options.Index().SetName(MongoCouponIndex).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "submittedAt", Value: -1}},
			Options: options.Index().SetName("idx_submitted_at"),
		},
	}
}

// EnsureIndexes creates the collection indexes if they are missing
func (r *MongoSurveyRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.collection.Indexes().CreateMany(ctx, SurveyIndexes()); err != nil {
		return fmt.Errorf("failed to create survey indexes: %w", err)
	}
	return nil
}

// Create inserts a survey response
func (r *MongoSurveyRepository) Create(ctx context.Context, record *domain.SurveyRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := r.now()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, surveyDocument{
		ID:          record.ID,
		LineUserID:  record.UserID,
		Answers:     record.Answers,
		CouponCode:  record.CouponCode,
		SubmittedAt: record.SubmittedAt,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	})
	if err != nil {
		if dup := r.duplicateError(err); dup != nil {
			return fmt.Errorf("failed to create survey response: %w: %w", dup, err)
		}
		return fmt.Errorf("failed to create survey response: %w", err)
	}
	return nil
}

// GetByUserID gets a survey response by LINE user ID
func (r *MongoSurveyRepository) GetByUserID(ctx context.Context, userID string) (*domain.SurveyRecord, error) {
	return r.findOne(ctx, bson.M{"lineUserId": userID})
}

// GetByCouponCode gets a survey response by coupon code
func (r *MongoSurveyRepository) GetByCouponCode(ctx context.Context, code string) (*domain.SurveyRecord, error) {
	return r.findOne(ctx, bson.M{"couponCode": code})
}

// MarkNotified records a successful coupon push
func (r *MongoSurveyRepository) MarkNotified(ctx context.Context, userID string, sentAt time.Time) error {
	filter := bson.M{"lineUserId": userID, "notificationSentAt": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"notificationSentAt": sentAt.UTC(), "updatedAt": r.now()}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

// Ping checks the MongoDB connection
func (r *MongoSurveyRepository) Ping(ctx context.Context) error {
	return r.collection.Database().Client().Ping(ctx, nil)
}

func (r *MongoSurveyRepository) findOne(ctx context.Context, filter bson.M) (*domain.SurveyRecord, error) {
	var doc surveyDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get survey response: %w", err)
	}

	return &domain.SurveyRecord{
		ID:                 doc.ID,
		UserID:             doc.LineUserID,
		Answers:            doc.Answers,
		CouponCode:         doc.CouponCode,
		NotificationSentAt: doc.NotificationSentAt,
		SubmittedAt:        doc.SubmittedAt,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}, nil
}

// duplicateError classifies err and logs duplicate key errors that name
// neither unique index, since those are returned as plain insert failures.
func (r *MongoSurveyRepository) duplicateError(err error) error {
	dup := classifyMongoError(err)
	if dup == nil && mongo.IsDuplicateKeyError(err) {
		r.logger.WithError(err).Warn("Duplicate key error on unexpected index")
	}
	return dup
}

// classifyMongoError maps a duplicate key error to the matching sentinel by
// the index name the server reports. It returns nil for every other error.
func classifyMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	var writeErr mongo.WriteException
	if !errors.As(err, &writeErr) {
		return nil
	}

	for _, we := range writeErr.WriteErrors {
		if we.Code != mongoDuplicateKey {
			continue
		}
		switch mongoIndexName(we.Message) {
		case MongoUserIndex:
			return ErrDuplicateUser
		case MongoCouponIndex:
			return ErrDuplicateCoupon
		}
	}
	return nil
}

// mongoIndexName extracts the index from an E11000 message such as
// "E11000 duplicate key error collection: db.c index: idx_name dup key: {...}".
func mongoIndexName(message string) string {
	_, rest, ok := strings.Cut(message, " index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

var _ SurveyRepository = (*MongoSurveyRepository)(nil)
