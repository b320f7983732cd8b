package mongopersistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

const (
	eventCollection    = "analytics_events"
	errorLogCollection = "error_logs"
)

// MongoEventRepository implements repository.EventRepository as an
// append-only collection.
type MongoEventRepository struct {
	coll *mongo.Collection
}

// NewMongoEventRepository creates a MongoEventRepository.
func NewMongoEventRepository(db *mongo.Database) *MongoEventRepository {
	if db == nil {
		panic("mongo database cannot be nil for MongoEventRepository")
	}
	return &MongoEventRepository{coll: db.Collection(eventCollection)}
}

func (r *MongoEventRepository) Insert(ctx context.Context, event *domain.Event) error {
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("mongo: insert event %s: %w", event.Kind, err)
	}
	return nil
}

func (r *MongoEventRepository) CountSince(ctx context.Context, from time.Time) (int64, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"timestamp": bson.M{"$gte": from}})
	if err != nil {
		return 0, fmt.Errorf("mongo: count events since %s: %w", from, err)
	}
	return count, nil
}

// MongoErrorLogRepository implements repository.ErrorLogRepository.
type MongoErrorLogRepository struct {
	coll *mongo.Collection
}

// NewMongoErrorLogRepository creates a MongoErrorLogRepository.
func NewMongoErrorLogRepository(db *mongo.Database) *MongoErrorLogRepository {
	if db == nil {
		panic("mongo database cannot be nil for MongoErrorLogRepository")
	}
	return &MongoErrorLogRepository{coll: db.Collection(errorLogCollection)}
}

func (r *MongoErrorLogRepository) Insert(ctx context.Context, entry *domain.ErrorLog) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("mongo: insert error log (%s): %w", entry.Kind, err)
	}
	return nil
}

func (r *MongoErrorLogRepository) CountByKind(ctx context.Context, from time.Time) ([]domain.ErrorCount, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"timestamp": bson.M{"$gte": from}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   "$kind",
			"count": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"count": -1}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return nil, fmt.Errorf("mongo: aggregate error counts: %w", err)
	}
	defer cur.Close(ctx)

	var counts []domain.ErrorCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("mongo: decode error counts: %w", err)
	}
	return counts, nil
}
