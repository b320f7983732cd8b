package mongopersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/repository"
)

const sessionCollection = "transfer_sessions"

// MongoSessionRepository implements repository.SessionRepository.
type MongoSessionRepository struct {
	coll *mongo.Collection
}

// NewMongoSessionRepository creates a MongoSessionRepository.
func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	if db == nil {
		panic("mongo database cannot be nil for MongoSessionRepository")
	}
	return &MongoSessionRepository{coll: db.Collection(sessionCollection)}
}

func (r *MongoSessionRepository) Create(ctx context.Context, session *domain.TransferSession) error {
	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("mongo: insert session %s: %w", session.SessionID, err)
	}
	return nil
}

func (r *MongoSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.TransferSession, error) {
	var session domain.TransferSession
	err := r.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("mongo: find session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (r *MongoSessionRepository) UpdateStatus(ctx context.Context, sessionID string, status domain.TransferStatus) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("mongo: update session %s status: %w", sessionID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *MongoSessionRepository) Finish(ctx context.Context, sessionID string, status domain.TransferStatus, endedAt time.Time, durationMs int64, reason string) error {
	set := bson.M{
		"status":     status,
		"endedAt":    endedAt,
		"durationMs": durationMs,
	}
	if reason != "" {
		set["failReason"] = reason
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": sessionID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo: finish session %s: %w", sessionID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *MongoSessionRepository) IncrementSignal(ctx context.Context, sessionID string, kind domain.SignalKind) error {
	var field string
	switch kind {
	case domain.SignalOffer:
		field = "signals.offers"
	case domain.SignalAnswer:
		field = "signals.answers"
	case domain.SignalCandidate:
		field = "signals.candidates"
	default:
		return fmt.Errorf("mongo: unknown signal kind %q", kind)
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$inc": bson.M{field: 1}})
	if err != nil {
		return fmt.Errorf("mongo: increment %s for session %s: %w", field, sessionID, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}
