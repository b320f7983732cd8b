package mongopersistence

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

const statsCollection = "daily_stats"

// MongoStatsRepository implements repository.StatsRepository on a Mongo
// collection holding one document per calendar day.
//
// Every mutation here is a single upserting UpdateOne built from $inc, $max
// or $addToSet, so concurrent writers (including other server processes)
// cannot lose updates. Hourly buckets live in a map keyed by hour-of-day,
// which makes each bucket field addressable with one dotted path.
type MongoStatsRepository struct {
	coll *mongo.Collection
}

// NewMongoStatsRepository creates a MongoStatsRepository.
func NewMongoStatsRepository(db *mongo.Database) *MongoStatsRepository {
	if db == nil {
		panic("mongo database cannot be nil for MongoStatsRepository")
	}
	return &MongoStatsRepository{coll: db.Collection(statsCollection)}
}

// counterIncUpdate builds the update document for a top-level counter bump.
func counterIncUpdate(field string, amount int64) bson.M {
	return bson.M{"$inc": bson.M{field: amount}}
}

// hourlyFieldPath builds the dotted path addressing (hour, field) inside the
// day document.
func hourlyFieldPath(hour int, field string) string {
	return fmt.Sprintf("hourly.%d.%s", hour, field)
}

func (r *MongoStatsRepository) IncrementCounter(ctx context.Context, day string, field string, amount int64) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": day},
		counterIncUpdate(field, amount),
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: increment %s for day %s: %w", field, day, err)
	}
	return nil
}

func (r *MongoStatsRepository) IncrementHourly(ctx context.Context, day string, hour int, field string, amount int64) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("mongo: hour %d out of range", hour)
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": day},
		counterIncUpdate(hourlyFieldPath(hour, field), amount),
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: increment hourly %s for day %s hour %d: %w", field, day, hour, err)
	}
	return nil
}

func (r *MongoStatsRepository) RecordPeakRooms(ctx context.Context, day string, active int) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": day},
		bson.M{"$max": bson.M{"peakConcurrentRooms": int64(active)}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: record peak rooms for day %s: %w", day, err)
	}
	return nil
}

func (r *MongoStatsRepository) AddConnection(ctx context.Context, day string, connID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": day},
		bson.M{"$addToSet": bson.M{"connectionIds": connID}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: add connection for day %s: %w", day, err)
	}
	return nil
}

func (r *MongoStatsRepository) FindRange(ctx context.Context, from, to string) ([]domain.DailyStat, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"_id": bson.M{"$gte": from, "$lte": to}},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: find daily stats [%s, %s]: %w", from, to, err)
	}
	defer cur.Close(ctx)

	var stats []domain.DailyStat
	if err := cur.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("mongo: decode daily stats: %w", err)
	}
	return stats, nil
}
