package domain

import "time"

// DayKey truncates a timestamp to the calendar-day key used for daily stat
// documents. Days are tracked in UTC so every server instance addresses the
// same document.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Daily counter field names. These double as bson paths in the stats store,
// so they must match the DailyStat tags below.
const (
	StatRoomsCreated       = "roomsCreated"
	StatRoomsCompleted     = "roomsCompleted"
	StatTotalConnections   = "totalConnections"
	StatTransfersInitiated = "transfersInitiated"
	StatTransfersCompleted = "transfersCompleted"
	StatTotalBytes         = "totalBytesTransferred"
	StatSessionMillis      = "totalSessionMillis"
)

// Hourly bucket field names.
const (
	HourlyConnections  = "connections"
	HourlyRoomsCreated = "roomsCreated"
	HourlyTransfers    = "transfers"
)

// HourlyBucket holds the per-hour slice of a day's counters.
type HourlyBucket struct {
	Connections  int64 `bson:"connections" json:"connections"`
	RoomsCreated int64 `bson:"roomsCreated" json:"roomsCreated"`
	Transfers    int64 `bson:"transfers" json:"transfers"`
}

// DailyStat is the aggregate document for one calendar day, keyed by DayKey.
// Counters are only ever touched with atomic server-side increments; the
// hourly map is keyed by hour-of-day ("0".."23") so each bucket field can be
// addressed with a single dotted-path increment.
type DailyStat struct {
	Date                string                  `bson:"_id" json:"date"`
	RoomsCreated        int64                   `bson:"roomsCreated" json:"roomsCreated"`
	RoomsCompleted      int64                   `bson:"roomsCompleted" json:"roomsCompleted"`
	PeakConcurrentRooms int64                   `bson:"peakConcurrentRooms" json:"peakConcurrentRooms"`
	TotalConnections    int64                   `bson:"totalConnections" json:"totalConnections"`
	ConnectionIDs       []string                `bson:"connectionIds,omitempty" json:"-"`
	UniqueUsers         int64                   `bson:"-" json:"uniqueUsers"`
	TransfersInitiated  int64                   `bson:"transfersInitiated" json:"transfersInitiated"`
	TransfersCompleted  int64                   `bson:"transfersCompleted" json:"transfersCompleted"`
	TotalBytes          int64                   `bson:"totalBytesTransferred" json:"totalBytesTransferred"`
	TotalSessionMillis  int64                   `bson:"totalSessionMillis" json:"-"`
	AvgSessionMillis    int64                   `bson:"-" json:"avgSessionMillis"`
	Hourly              map[string]HourlyBucket `bson:"hourly,omitempty" json:"hourly,omitempty"`
}

// Finalize fills the derived fields that are computed at read time rather
// than stored, so they can never race with concurrent increments.
func (d *DailyStat) Finalize() {
	d.UniqueUsers = int64(len(d.ConnectionIDs))
	if d.TransfersCompleted > 0 {
		d.AvgSessionMillis = d.TotalSessionMillis / d.TransfersCompleted
	}
}

// ErrorKind classifies entries in the error log.
type ErrorKind string

const (
	ErrKindRoomNotFound     ErrorKind = "room-not-found"
	ErrKindRoomFull         ErrorKind = "room-full"
	ErrKindConnectionFailed ErrorKind = "connection-failed"
	ErrKindTransferFailed   ErrorKind = "transfer-failed"
	ErrKindOther            ErrorKind = "other"
)

// ErrorLog is an append-only error record. Never mutated or deleted.
type ErrorLog struct {
	Kind         ErrorKind      `bson:"kind" json:"kind"`
	Message      string         `bson:"message" json:"message"`
	RoomID       string         `bson:"roomId,omitempty" json:"roomId,omitempty"`
	ConnectionID string         `bson:"connectionId,omitempty" json:"connectionId,omitempty"`
	Metadata     map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp    time.Time      `bson:"timestamp" json:"timestamp"`
}

// ErrorCount is one row of the summary's error breakdown.
type ErrorCount struct {
	Kind  ErrorKind `bson:"_id" json:"kind"`
	Count int64     `bson:"count" json:"count"`
}
