package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/registry"
)

// EventRecorder receives domain events for background recording. Record must
// never block and never fail the caller.
type EventRecorder interface {
	Record(event domain.Event)
}

const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgInbound    = "inbound"
)

// hubMessage is the internal unit of work on the hub's channel.
type hubMessage struct {
	kind   string
	client *Client
	data   []byte
}

// Hub serializes every room-state transition and all signaling relay.
// Exactly one goroutine drains messageChan, so a transition (registry
// mutation plus all outbound notifications) completes fully before the next
// one starts; two simultaneous joins can never both see a half-full room.
// Analytics recording is the only thing handed off, and that hand-off is
// non-blocking.
type Hub struct {
	messageChan chan hubMessage
	done        chan struct{}
	clients     map[string]*Client
	reg         *registry.Registry
	analytics   EventRecorder

	// activeSessions maps a room to its in-flight transfer session, used to
	// attribute relayed signaling events. Touched only on the hub loop.
	activeSessions map[string]string

	connCount atomic.Int64
	stopOnce  sync.Once
}

// NewHub creates a Hub.
func NewHub(reg *registry.Registry, analytics EventRecorder) *Hub {
	if reg == nil {
		panic("registry cannot be nil for Hub")
	}
	if analytics == nil {
		panic("event recorder cannot be nil for Hub")
	}
	return &Hub{
		messageChan:    make(chan hubMessage, 512),
		done:           make(chan struct{}),
		clients:        make(map[string]*Client),
		reg:            reg,
		analytics:      analytics,
		activeSessions: make(map[string]string),
	}
}

// Run drains the hub's message channel until Stop is called. It must run in
// exactly one goroutine.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for {
		select {
		case <-h.done:
			// Closing the connections unblocks every lingering read pump;
			// their final sends land in the still-open channel and are
			// simply never drained.
			for _, c := range h.clients {
				c.CloseConn()
			}
			log.Info("Hub is shutting down...")
			return
		case msg := <-h.messageChan:
			switch msg.kind {
			case msgRegister:
				h.registerClient(msg.client)
			case msgUnregister:
				h.unregisterClient(msg.client)
			case msgInbound:
				h.handleInbound(msg.client, msg.data)
			default:
				log.Warnf("Unknown hub message kind: %s", msg.kind)
			}
		}
	}
}

// Stop signals Run to exit. The message channel stays open: read pumps of
// connections that outlive shutdown can still push their last frames without
// panicking.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// queueUnregister delivers a client's teardown message, waiting for loop
// capacity. A lost teardown would leak the client and its room membership,
// so this send blocks until delivered or until the hub has stopped.
func (h *Hub) queueUnregister(c *Client) {
	select {
	case h.messageChan <- hubMessage{kind: msgUnregister, client: c}:
	case <-h.done:
	}
}

// QueueRegister submits a new client to the hub. Returns false if the hub
// queue is full.
func (h *Hub) QueueRegister(client *Client) bool {
	select {
	case h.messageChan <- hubMessage{kind: msgRegister, client: client}:
		return true
	default:
		logrus.WithField("connection_id", client.ID()).Warn("Hub message channel full, rejecting registration")
		return false
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int64 {
	return h.connCount.Load()
}

// Registry exposes the room registry for read-only queries.
func (h *Hub) Registry() *registry.Registry {
	return h.reg
}

func (h *Hub) registerClient(c *Client) {
	if c == nil {
		return
	}
	h.clients[c.id] = c
	h.connCount.Store(int64(len(h.clients)))
	logrus.WithFields(logrus.Fields{"component": "hub", "connection_id": c.id}).Info("Client registered")

	h.analytics.Record(domain.Event{
		Kind:         domain.EventConnectionOpened,
		ConnectionID: c.id,
	})
}

// unregisterClient handles transport teardown. Idempotent: a connection that
// was already unregistered (or never registered) changes nothing and emits
// nothing.
func (h *Hub) unregisterClient(c *Client) {
	if c == nil {
		return
	}
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	h.connCount.Store(int64(len(h.clients)))

	h.departRoom(c, false)

	close(c.send)
	logrus.WithFields(logrus.Fields{"component": "hub", "connection_id": c.id}).Info("Client unregistered")
}

func (h *Hub) handleInbound(c *Client, data []byte) {
	logCtx := logrus.WithFields(logrus.Fields{"component": "hub", "connection_id": c.id})

	var msg domain.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logCtx.WithError(err).Warn("Malformed client message dropped")
		return
	}

	switch msg.Type {
	case domain.MsgCreateRoom:
		h.handleCreateRoom(c)
	case domain.MsgJoinRoom:
		h.handleJoinRoom(c, msg.RoomID)
	case domain.MsgLeaveRoom:
		h.handleLeaveRoom(c)
	case domain.MsgOffer:
		h.handleSignal(c, domain.SignalOffer, msg.RoomID, msg.Offer)
	case domain.MsgAnswer:
		h.handleSignal(c, domain.SignalAnswer, msg.RoomID, msg.Answer)
	case domain.MsgIceCandidate:
		h.handleSignal(c, domain.SignalCandidate, msg.RoomID, msg.Candidate)
	case domain.MsgTransferStart:
		h.handleTransferStart(c, msg)
	case domain.MsgTransferComplete:
		h.handleTransferComplete(c, msg)
	case domain.MsgTransferFailed:
		h.handleTransferFailed(c, msg)
	case domain.MsgDataTransfer:
		h.handleDataTransfer(c, msg)
	default:
		logCtx.Warnf("Unknown message type %q dropped", msg.Type)
	}
}

func (h *Hub) handleCreateRoom(c *Client) {
	roomID, err := h.reg.CreateRoom(c.id)
	if err != nil {
		h.sendError(c, domain.CodeAlreadyInRoom, "Leave your current room before creating a new one")
		return
	}

	h.sendJSON(c, domain.RoomCreatedMsg{
		Type:      domain.MsgRoomCreated,
		RoomID:    roomID,
		Occupancy: 1,
		Capacity:  domain.RoomCapacity,
	})
	logrus.WithFields(logrus.Fields{"component": "hub", "connection_id": c.id, "room_id": roomID}).Info("Room created")

	h.analytics.Record(domain.Event{
		Kind:         domain.EventRoomCreated,
		RoomID:       roomID,
		ConnectionID: c.id,
		ActiveRooms:  h.reg.RoomCount(),
	})
}

func (h *Hub) handleJoinRoom(c *Client, roomID string) {
	logCtx := logrus.WithFields(logrus.Fields{"component": "hub", "connection_id": c.id, "room_id": roomID})

	occupancy, err := h.reg.Join(c.id, roomID)
	if err != nil {
		h.rejectJoin(c, roomID, err, logCtx)
		return
	}
	isFull := occupancy >= domain.RoomCapacity

	// Member notifications first, then the room-full broadcast: exactly one
	// broadcast per transition.
	for _, other := range h.reg.OtherMembers(roomID, c.id) {
		h.sendTo(other, domain.UserJoinedMsg{
			Type:      domain.MsgUserJoined,
			UserID:    c.id,
			Occupancy: occupancy,
			Capacity:  domain.RoomCapacity,
			IsFull:    isFull,
		})
	}
	h.sendJSON(c, domain.RoomJoinedMsg{
		Type:      domain.MsgRoomJoined,
		RoomID:    roomID,
		Occupancy: occupancy,
		Capacity:  domain.RoomCapacity,
		IsFull:    isFull,
	})
	if isFull {
		full := domain.RoomFullMsg{
			Type:      domain.MsgRoomFull,
			RoomID:    roomID,
			Occupancy: occupancy,
			Capacity:  domain.RoomCapacity,
			Message:   "Room is full, ready to start transfer",
		}
		for _, member := range h.reg.Members(roomID) {
			h.sendTo(member, full)
		}
	}
	logCtx.WithField("occupancy", occupancy).Info("Client joined room")

	h.analytics.Record(domain.Event{
		Kind:         domain.EventRoomJoined,
		RoomID:       roomID,
		ConnectionID: c.id,
	})
}

func (h *Hub) rejectJoin(c *Client, roomID string, err error, logCtx *logrus.Entry) {
	switch err {
	case registry.ErrRoomNotFound:
		h.sendError(c, domain.CodeRoomNotFound, "Room not found or already dismissed")
		h.recordError(domain.ErrKindRoomNotFound, roomID, c.id, "join-room: room not found")
	case registry.ErrRoomFull:
		h.sendJSON(c, domain.RoomFullMsg{
			Type:      domain.MsgRoomFull,
			RoomID:    roomID,
			Occupancy: h.reg.Occupancy(roomID),
			Capacity:  domain.RoomCapacity,
			Message:   "Room already has two peers",
		})
		h.sendError(c, domain.CodeRoomFull, "Room is full")
		h.recordError(domain.ErrKindRoomFull, roomID, c.id, "join-room: room full")
	case registry.ErrAlreadyInRoom:
		h.sendError(c, domain.CodeAlreadyInRoom, "Leave your current room before joining another")
	default:
		h.sendError(c, domain.CodeRoomNotFound, "Unable to join room")
	}
	logCtx.WithError(err).Warn("Join rejected")
}

func (h *Hub) handleLeaveRoom(c *Client) {
	roomID, ok := h.departRoom(c, true)
	if !ok {
		h.sendError(c, domain.CodeNotInRoom, "You are not in a room")
		return
	}
	h.sendJSON(c, domain.RoomLeftMsg{
		Type:    domain.MsgRoomLeft,
		RoomID:  roomID,
		Message: "Successfully left the room",
	})
}

// departRoom removes the connection from its room and emits the departure
// notifications. Shared by explicit leave and transport teardown; the two
// differ only in the direct acknowledgment, which the caller owns.
func (h *Hub) departRoom(c *Client, explicit bool) (string, bool) {
	roomID, remaining, members, err := h.reg.Leave(c.id)
	if err != nil {
		return "", false
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"component":     "hub",
		"connection_id": c.id,
		"room_id":       roomID,
		"remaining":     remaining,
		"explicit":      explicit,
	})

	if remaining > 0 {
		for _, member := range members {
			h.sendTo(member, domain.UserLeftMsg{
				Type:      domain.MsgUserLeft,
				UserID:    c.id,
				Occupancy: remaining,
				Capacity:  domain.RoomCapacity,
			})
		}
		logCtx.Info("Client left room")
	} else {
		// Last member departed: the room is gone and this is the only
		// dismissal this room will ever broadcast. Usually nobody is left
		// subscribed to hear it.
		dismissed := domain.RoomDismissedMsg{
			Type:   domain.MsgRoomDismissed,
			RoomID: roomID,
			Reason: "All users left the room",
		}
		for _, member := range members {
			h.sendTo(member, dismissed)
		}
		delete(h.activeSessions, roomID)
		logCtx.Info("Room dismissed")

		h.analytics.Record(domain.Event{
			Kind:         domain.EventRoomClosed,
			RoomID:       roomID,
			ConnectionID: c.id,
		})
	}

	h.analytics.Record(domain.Event{
		Kind:         domain.EventUserLeft,
		RoomID:       roomID,
		ConnectionID: c.id,
	})
	return roomID, true
}

// handleSignal relays a negotiation payload to the other room member. A
// sender that is not (or no longer) a member is an expected race with room
// teardown, so the payload is dropped without an error.
func (h *Hub) handleSignal(c *Client, kind domain.SignalKind, roomID string, payload json.RawMessage) {
	if roomID == "" || !h.reg.IsMember(roomID, c.id) {
		logrus.WithFields(logrus.Fields{
			"component":     "hub",
			"connection_id": c.id,
			"room_id":       roomID,
			"signal":        kind,
		}).Debug("Signal from non-member dropped")
		return
	}

	out := domain.NewSignalMsg(kind, payload)
	for _, other := range h.reg.OtherMembers(roomID, c.id) {
		h.sendTo(other, out)
	}

	if sessionID, ok := h.activeSessions[roomID]; ok {
		h.analytics.Record(domain.Event{
			Kind:         domain.EventSignal,
			RoomID:       roomID,
			ConnectionID: c.id,
			SessionID:    sessionID,
			SignalKind:   kind,
		})
	}
}

func (h *Hub) handleTransferStart(c *Client, msg domain.ClientMessage) {
	roomID := h.resolveRoom(c, msg.RoomID)
	if roomID == "" {
		return
	}
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if current, ok := h.activeSessions[roomID]; ok && current == sessionID {
		h.analytics.Record(domain.Event{
			Kind:         domain.EventTransferUpdated,
			RoomID:       roomID,
			ConnectionID: c.id,
			SessionID:    sessionID,
		})
		return
	}
	h.activeSessions[roomID] = sessionID

	var peerID string
	if others := h.reg.OtherMembers(roomID, c.id); len(others) > 0 {
		peerID = others[0]
	}
	h.analytics.Record(domain.Event{
		Kind:         domain.EventTransferInitiated,
		RoomID:       roomID,
		ConnectionID: c.id,
		PeerID:       peerID,
		SessionID:    sessionID,
		FileCount:    msg.FileCount,
		TotalBytes:   msg.TotalBytes,
	})
	logrus.WithFields(logrus.Fields{
		"component":  "hub",
		"room_id":    roomID,
		"session_id": sessionID,
		"file_count": msg.FileCount,
	}).Info("Transfer started")
}

func (h *Hub) handleTransferComplete(c *Client, msg domain.ClientMessage) {
	roomID := h.resolveRoom(c, msg.RoomID)
	if roomID == "" {
		return
	}
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = h.activeSessions[roomID]
	}
	if sessionID == "" {
		return
	}
	delete(h.activeSessions, roomID)

	h.analytics.Record(domain.Event{
		Kind:         domain.EventTransferCompleted,
		RoomID:       roomID,
		ConnectionID: c.id,
		SessionID:    sessionID,
	})
	logrus.WithFields(logrus.Fields{"component": "hub", "room_id": roomID, "session_id": sessionID}).Info("Transfer completed")
}

func (h *Hub) handleTransferFailed(c *Client, msg domain.ClientMessage) {
	roomID := h.resolveRoom(c, msg.RoomID)
	if roomID == "" {
		return
	}
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = h.activeSessions[roomID]
	}
	delete(h.activeSessions, roomID)

	h.analytics.Record(domain.Event{
		Kind:         domain.EventTransferFailed,
		RoomID:       roomID,
		ConnectionID: c.id,
		SessionID:    sessionID,
		Message:      msg.Reason,
	})
	logrus.WithFields(logrus.Fields{
		"component":  "hub",
		"room_id":    roomID,
		"session_id": sessionID,
		"reason":     msg.Reason,
	}).Warn("Transfer failed")
}

// handleDataTransfer records a simplified completed-transfer report used
// when the client does not track individual transfer events.
func (h *Hub) handleDataTransfer(c *Client, msg domain.ClientMessage) {
	roomID := h.resolveRoom(c, msg.RoomID)
	if roomID == "" {
		return
	}
	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if h.activeSessions[roomID] == sessionID {
		delete(h.activeSessions, roomID)
	}

	h.analytics.Record(domain.Event{
		Kind:         domain.EventTransferCompleted,
		RoomID:       roomID,
		ConnectionID: c.id,
		SessionID:    sessionID,
		Bytes:        msg.Bytes,
	})
}

// resolveRoom returns the room a transfer message applies to, falling back
// to the sender's current room. Empty result means the message is dropped
// as a teardown race.
func (h *Hub) resolveRoom(c *Client, roomID string) string {
	if roomID != "" {
		if h.reg.IsMember(roomID, c.id) {
			return roomID
		}
		return ""
	}
	if current, ok := h.reg.RoomOf(c.id); ok {
		return current
	}
	return ""
}

func (h *Hub) recordError(kind domain.ErrorKind, roomID, connID, message string) {
	h.analytics.Record(domain.Event{
		Kind:         domain.EventError,
		ErrorKind:    kind,
		RoomID:       roomID,
		ConnectionID: connID,
		Message:      message,
	})
}

func (h *Hub) sendError(c *Client, code, message string) {
	h.sendJSON(c, domain.ErrorMsg{Type: domain.MsgError, Code: code, Message: message})
}

func (h *Hub) sendTo(connID string, payload any) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	h.sendJSON(client, payload)
}

func (h *Hub) sendJSON(c *Client, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal outbound message")
		return
	}
	select {
	case c.send <- data:
	default:
		logrus.WithField("connection_id", c.id).Warn("Client send channel full, message dropped")
	}
}
