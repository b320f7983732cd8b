package domain

import "time"

// TransferStatus is the lifecycle state of a transfer session.
// Terminal states are completed, failed and cancelled.
type TransferStatus string

const (
	TransferInitiated    TransferStatus = "initiated"
	TransferTransferring TransferStatus = "transferring"
	TransferPaused       TransferStatus = "paused"
	TransferCompleted    TransferStatus = "completed"
	TransferFailed       TransferStatus = "failed"
	TransferCancelled    TransferStatus = "cancelled"
)

// IsTerminal reports whether the status allows no further transitions.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferFailed || s == TransferCancelled
}

// IsActive reports whether signaling events should still be counted against
// a session in this status.
func (s TransferStatus) IsActive() bool {
	return s == TransferInitiated || s == TransferTransferring
}

// SignalCounters tallies negotiation messages relayed while a session was
// active in its room.
type SignalCounters struct {
	Offers     int64 `bson:"offers" json:"offers"`
	Answers    int64 `bson:"answers" json:"answers"`
	Candidates int64 `bson:"candidates" json:"candidates"`
}

// TransferSession is one file-transfer attempt tied to a room. Sessions are
// never deleted, only moved to a terminal status.
type TransferSession struct {
	SessionID   string         `bson:"_id" json:"sessionId"`
	RoomID      string         `bson:"roomId" json:"roomId"`
	InitiatorID string         `bson:"initiatorId,omitempty" json:"initiatorId,omitempty"`
	ReceiverID  string         `bson:"receiverId,omitempty" json:"receiverId,omitempty"`
	FileCount   int            `bson:"fileCount" json:"fileCount"`
	TotalBytes  int64          `bson:"totalBytes" json:"totalBytes"`
	Status      TransferStatus `bson:"status" json:"status"`
	StartedAt   time.Time      `bson:"startedAt" json:"startedAt"`
	EndedAt     *time.Time     `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	DurationMs  int64          `bson:"durationMs,omitempty" json:"durationMs,omitempty"`
	FailReason  string         `bson:"failReason,omitempty" json:"failReason,omitempty"`
	Signals     SignalCounters `bson:"signals" json:"signals"`
}
