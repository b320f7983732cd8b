package domain

import "encoding/json"

// SignalKind identifies a WebRTC negotiation payload. The server never looks
// inside the payload itself.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "ice-candidate"
)

// Client -> server message types.
const (
	MsgCreateRoom       = "create-room"
	MsgJoinRoom         = "join-room"
	MsgLeaveRoom        = "leave-room"
	MsgOffer            = "offer"
	MsgAnswer           = "answer"
	MsgIceCandidate     = "ice-candidate"
	MsgTransferStart    = "transfer-start"
	MsgTransferComplete = "transfer-complete"
	MsgTransferFailed   = "transfer-failed"
	MsgDataTransfer     = "data-transfer"
)

// Server -> client message types.
const (
	MsgRoomCreated   = "room-created"
	MsgRoomJoined    = "room-joined"
	MsgUserJoined    = "user-joined"
	MsgUserLeft      = "user-left"
	MsgRoomFull      = "room-full"
	MsgRoomDismissed = "room-dismissed"
	MsgRoomLeft      = "room-left"
	MsgError         = "error"
)

// Error codes carried in outbound error messages.
const (
	CodeRoomNotFound  = "ROOM_NOT_FOUND"
	CodeRoomFull      = "ROOM_FULL"
	CodeNotInRoom     = "NOT_IN_ROOM"
	CodeAlreadyInRoom = "ALREADY_IN_ROOM"
)

// ClientMessage is the inbound envelope. Fields are a union over every
// client->server message; only the ones relevant to Type are populated.
// Offer/Answer/Candidate stay raw: the server relays them byte-for-byte.
type ClientMessage struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"roomId,omitempty"`
	SessionID  string          `json:"sessionId,omitempty"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
	FileCount  int             `json:"fileCount,omitempty"`
	TotalBytes int64           `json:"totalBytes,omitempty"`
	Bytes      int64           `json:"bytes,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

type RoomCreatedMsg struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
}

type RoomJoinedMsg struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
	IsFull    bool   `json:"isFull"`
}

type UserJoinedMsg struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
	IsFull    bool   `json:"isFull"`
}

type UserLeftMsg struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
}

type RoomFullMsg struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
	Message   string `json:"message"`
}

type RoomDismissedMsg struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

type RoomLeftMsg struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SignalMsg carries a relayed negotiation payload to the other peer. Exactly
// one of Offer/Answer/Candidate is set, matching Type.
type SignalMsg struct {
	Type      string          `json:"type"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// NewSignalMsg builds the outbound relay message for the given kind.
func NewSignalMsg(kind SignalKind, payload json.RawMessage) SignalMsg {
	msg := SignalMsg{Type: string(kind)}
	switch kind {
	case SignalOffer:
		msg.Offer = payload
	case SignalAnswer:
		msg.Answer = payload
	case SignalCandidate:
		msg.Candidate = payload
	}
	return msg
}
