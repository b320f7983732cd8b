package mongopersistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestHourlyFieldPath(t *testing.T) {
	assert.Equal(t, "hourly.0.connections", hourlyFieldPath(0, "connections"))
	assert.Equal(t, "hourly.15.transfers", hourlyFieldPath(15, "transfers"))
	assert.Equal(t, "hourly.23.roomsCreated", hourlyFieldPath(23, "roomsCreated"))
}

func TestCounterIncUpdate(t *testing.T) {
	// The update must be a pure $inc: anything else (a $set of a computed
	// value, say) would reintroduce the read-modify-write race.
	update := counterIncUpdate("roomsCreated", 3)
	assert.Equal(t, bson.M{"$inc": bson.M{"roomsCreated": int64(3)}}, update)

	update = counterIncUpdate(hourlyFieldPath(7, "connections"), 1)
	assert.Equal(t, bson.M{"$inc": bson.M{"hourly.7.connections": int64(1)}}, update)
}
