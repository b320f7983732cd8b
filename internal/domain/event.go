package domain

import "time"

// EventKind names a domain event recorded by the analytics pipeline.
type EventKind string

const (
	EventConnectionOpened  EventKind = "connection-opened"
	EventRoomCreated       EventKind = "room-created"
	EventRoomJoined        EventKind = "room-joined"
	EventUserLeft          EventKind = "user-left"
	EventRoomClosed        EventKind = "room-closed"
	EventTransferInitiated EventKind = "transfer-initiated"
	EventTransferUpdated   EventKind = "transfer-updated"
	EventTransferCompleted EventKind = "transfer-completed"
	EventTransferFailed    EventKind = "transfer-failed"
	EventSignal            EventKind = "signaling-event"
	EventError             EventKind = "error"
)

// Event is the payload handed from the signaling path to the analytics
// pipeline. It is serialized into the task queue and stored verbatim in the
// events collection, so fields are a union over all kinds.
type Event struct {
	Kind         EventKind      `bson:"kind" json:"kind"`
	RoomID       string         `bson:"roomId,omitempty" json:"roomId,omitempty"`
	ConnectionID string         `bson:"connectionId,omitempty" json:"connectionId,omitempty"`
	SessionID    string         `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	PeerID       string         `bson:"peerId,omitempty" json:"peerId,omitempty"`
	SignalKind   SignalKind     `bson:"signalKind,omitempty" json:"signalKind,omitempty"`
	FileCount    int            `bson:"fileCount,omitempty" json:"fileCount,omitempty"`
	TotalBytes   int64          `bson:"totalBytes,omitempty" json:"totalBytes,omitempty"`
	Bytes        int64          `bson:"bytes,omitempty" json:"bytes,omitempty"`
	ErrorKind    ErrorKind      `bson:"errorKind,omitempty" json:"errorKind,omitempty"`
	Message      string         `bson:"message,omitempty" json:"message,omitempty"`
	Metadata     map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	// ActiveRooms carries the registry's room count at the moment a room was
	// created, used for the peak-concurrent-rooms high-water mark.
	ActiveRooms int       `bson:"activeRooms,omitempty" json:"activeRooms,omitempty"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}
