package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/registry"
)

// recordingSink captures events synchronously in place of the analytics
// pipeline.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Record(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) byKind(kind domain.EventKind) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// newTestHub builds a hub whose handlers are driven directly, without
// running the loop or any websocket pumps.
func newTestHub() (*Hub, *recordingSink) {
	sink := &recordingSink{}
	h := NewHub(registry.New(), sink)
	return h, sink
}

func addClient(h *Hub, id string) *Client {
	c := NewClient(h, nil, id)
	h.registerClient(c)
	return c
}

// recv pops the next outbound message for a client, failing if none is
// queued.
func recv(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data := <-c.send:
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatalf("no message queued for %s", c.ID())
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client, msgAndArgs ...any) {
	t.Helper()
	select {
	case data := <-c.send:
		assert.Fail(t, fmt.Sprintf("unexpected message for %s: %s", c.ID(), data), msgAndArgs...)
	default:
	}
}

func inbound(h *Hub, c *Client, msg domain.ClientMessage) {
	data, _ := json.Marshal(msg)
	h.handleInbound(c, data)
}

func createRoom(t *testing.T, h *Hub, c *Client) string {
	t.Helper()
	inbound(h, c, domain.ClientMessage{Type: domain.MsgCreateRoom})
	created := recv(t, c)
	require.Equal(t, domain.MsgRoomCreated, created["type"])
	return created["roomId"].(string)
}

func TestHub_CreateRoom(t *testing.T) {
	h, sink := newTestHub()
	a := addClient(h, "A")

	inbound(h, a, domain.ClientMessage{Type: domain.MsgCreateRoom})

	created := recv(t, a)
	assert.Equal(t, domain.MsgRoomCreated, created["type"])
	assert.Len(t, created["roomId"].(string), 6)
	assert.EqualValues(t, 1, created["occupancy"])
	assert.EqualValues(t, 2, created["capacity"])

	events := sink.byKind(domain.EventRoomCreated)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].ActiveRooms)
}

func TestHub_JoinRoom_FullFlow(t *testing.T) {
	h, _ := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	roomID := createRoom(t, h, a)

	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})

	// A gets the member notification before the broadcast.
	userJoined := recv(t, a)
	assert.Equal(t, domain.MsgUserJoined, userJoined["type"])
	assert.Equal(t, "B", userJoined["userId"])
	assert.EqualValues(t, 2, userJoined["occupancy"])
	assert.Equal(t, true, userJoined["isFull"])

	roomJoined := recv(t, b)
	assert.Equal(t, domain.MsgRoomJoined, roomJoined["type"])
	assert.Equal(t, roomID, roomJoined["roomId"])
	assert.EqualValues(t, 2, roomJoined["occupancy"])
	assert.Equal(t, true, roomJoined["isFull"])

	// Both members then get exactly one room-full broadcast.
	fullA := recv(t, a)
	fullB := recv(t, b)
	assert.Equal(t, domain.MsgRoomFull, fullA["type"])
	assert.Equal(t, domain.MsgRoomFull, fullB["type"])
	assertNoMessage(t, a)
	assertNoMessage(t, b)
}

func TestHub_JoinRoom_Full(t *testing.T) {
	h, sink := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	c := addClient(h, "C")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})

	inbound(h, c, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})

	full := recv(t, c)
	assert.Equal(t, domain.MsgRoomFull, full["type"])
	errMsg := recv(t, c)
	assert.Equal(t, domain.MsgError, errMsg["type"])
	assert.Equal(t, domain.CodeRoomFull, errMsg["code"])
	assert.Equal(t, 2, h.reg.Occupancy(roomID), "rejected join must not change occupancy")

	errs := sink.byKind(domain.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrKindRoomFull, errs[0].ErrorKind)
}

func TestHub_JoinRoom_NotFound(t *testing.T) {
	h, sink := newTestHub()
	c := addClient(h, "C")

	inbound(h, c, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: "ZZZZZZ"})

	errMsg := recv(t, c)
	assert.Equal(t, domain.MsgError, errMsg["type"])
	assert.Equal(t, domain.CodeRoomNotFound, errMsg["code"])
	assert.Zero(t, h.reg.RoomCount(), "no state change for a failed join")

	errs := sink.byKind(domain.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, domain.ErrKindRoomNotFound, errs[0].ErrorKind)
}

func TestHub_Disconnect_NotifiesRemaining(t *testing.T) {
	h, _ := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	drain(a)
	drain(b)

	h.unregisterClient(a)

	left := recv(t, b)
	assert.Equal(t, domain.MsgUserLeft, left["type"])
	assert.Equal(t, "A", left["userId"])
	assert.EqualValues(t, 1, left["occupancy"])
	assert.True(t, h.reg.Exists(roomID), "room with a remaining member survives disconnect")
}

func TestHub_LeaveRoom_LastMemberDismisses(t *testing.T) {
	h, sink := newTestHub()
	b := addClient(h, "B")
	roomID := createRoom(t, h, b)

	inbound(h, b, domain.ClientMessage{Type: domain.MsgLeaveRoom})

	left := recv(t, b)
	assert.Equal(t, domain.MsgRoomLeft, left["type"])
	assert.Equal(t, roomID, left["roomId"])
	assert.Equal(t, "Successfully left the room", left["message"])
	assert.False(t, h.reg.Exists(roomID))

	closed := sink.byKind(domain.EventRoomClosed)
	assert.Len(t, closed, 1, "exactly one closure per room lifetime")
}

func TestHub_LeaveRoom_NotInRoom(t *testing.T) {
	h, _ := newTestHub()
	c := addClient(h, "C")

	inbound(h, c, domain.ClientMessage{Type: domain.MsgLeaveRoom})

	errMsg := recv(t, c)
	assert.Equal(t, domain.MsgError, errMsg["type"])
	assert.Equal(t, domain.CodeNotInRoom, errMsg["code"])
}

func TestHub_IdempotentTeardown(t *testing.T) {
	h, sink := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	drain(a)
	drain(b)

	h.unregisterClient(a)
	drain(b)
	before := len(sink.byKind(domain.EventUserLeft))

	// Second teardown of the same connection: no state change, no
	// notifications, no duplicate events.
	h.unregisterClient(a)
	assertNoMessage(t, b)
	assert.Equal(t, before, len(sink.byKind(domain.EventUserLeft)))
	assert.Equal(t, 1, h.reg.Occupancy(roomID))
}

func TestHub_ExactlyOnceDismissal(t *testing.T) {
	h, sink := newTestHub()
	b := addClient(h, "B")
	createRoom(t, h, b)

	inbound(h, b, domain.ClientMessage{Type: domain.MsgLeaveRoom})
	// The transport teardown that follows an explicit leave.
	h.unregisterClient(b)

	assert.Len(t, sink.byKind(domain.EventRoomClosed), 1)
}

func TestHub_Relay(t *testing.T) {
	h, _ := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	drain(a)
	drain(b)

	payload := json.RawMessage(`{"sdp":"v=0...","type":"offer"}`)
	inbound(h, a, domain.ClientMessage{Type: domain.MsgOffer, RoomID: roomID, Offer: payload})

	relayed := recv(t, b)
	assert.Equal(t, "offer", relayed["type"])
	offer, err := json.Marshal(relayed["offer"])
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(offer), "payload relayed unmodified")
	assertNoMessage(t, a, "payload must never echo back to the sender")
}

func TestHub_Relay_NonMemberIsSilentNoop(t *testing.T) {
	h, _ := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	outsider := addClient(h, "X")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	drain(a)
	drain(b)

	inbound(h, outsider, domain.ClientMessage{
		Type:      domain.MsgIceCandidate,
		RoomID:    roomID,
		Candidate: json.RawMessage(`{"candidate":"..."}`),
	})

	assertNoMessage(t, a)
	assertNoMessage(t, b)
	assertNoMessage(t, outsider, "a late payload is a race, not a client error")
}

func TestHub_SignalTally_OnlyWithActiveSession(t *testing.T) {
	h, sink := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	drain(a)
	drain(b)

	candidate := json.RawMessage(`{"candidate":"c1"}`)
	inbound(h, a, domain.ClientMessage{Type: domain.MsgIceCandidate, RoomID: roomID, Candidate: candidate})
	assert.Empty(t, sink.byKind(domain.EventSignal), "no active session, tally dropped")
	drain(b)

	inbound(h, a, domain.ClientMessage{Type: domain.MsgTransferStart, RoomID: roomID, SessionID: "s1", FileCount: 2, TotalBytes: 1024})
	inbound(h, a, domain.ClientMessage{Type: domain.MsgIceCandidate, RoomID: roomID, Candidate: candidate})

	tallies := sink.byKind(domain.EventSignal)
	require.Len(t, tallies, 1)
	assert.Equal(t, "s1", tallies[0].SessionID)
	assert.Equal(t, domain.SignalCandidate, tallies[0].SignalKind)
}

func TestHub_TransferLifecycleEvents(t *testing.T) {
	h, sink := newTestHub()
	a := addClient(h, "A")
	b := addClient(h, "B")
	roomID := createRoom(t, h, a)
	inbound(h, b, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	drain(a)
	drain(b)

	inbound(h, a, domain.ClientMessage{Type: domain.MsgTransferStart, RoomID: roomID, SessionID: "s1", FileCount: 3, TotalBytes: 4096})
	initiated := sink.byKind(domain.EventTransferInitiated)
	require.Len(t, initiated, 1)
	assert.Equal(t, "B", initiated[0].PeerID)
	assert.Equal(t, 3, initiated[0].FileCount)

	inbound(h, a, domain.ClientMessage{Type: domain.MsgTransferComplete, RoomID: roomID, SessionID: "s1"})
	completed := sink.byKind(domain.EventTransferCompleted)
	require.Len(t, completed, 1)

	// The session is no longer active, so further signals are not tallied.
	inbound(h, a, domain.ClientMessage{Type: domain.MsgOffer, RoomID: roomID, Offer: json.RawMessage(`{}`)})
	assert.Empty(t, sink.byKind(domain.EventSignal))
}

func TestHub_DataTransferShorthand(t *testing.T) {
	h, sink := newTestHub()
	a := addClient(h, "A")
	roomID := createRoom(t, h, a)

	inbound(h, a, domain.ClientMessage{Type: domain.MsgDataTransfer, RoomID: roomID, Bytes: 2048})

	completed := sink.byKind(domain.EventTransferCompleted)
	require.Len(t, completed, 1)
	assert.EqualValues(t, 2048, completed[0].Bytes)
	assert.NotEmpty(t, completed[0].SessionID, "a session id is minted for untracked reports")
}

func TestHub_CapacityUnderJoinStorm(t *testing.T) {
	// All joins funnel through the single handler path; occupancy can never
	// exceed capacity no matter how many clients race for the same room.
	h, _ := newTestHub()
	a := addClient(h, "A")
	roomID := createRoom(t, h, a)

	for i := 0; i < 10; i++ {
		c := addClient(h, fmt.Sprintf("C%d", i))
		inbound(h, c, domain.ClientMessage{Type: domain.MsgJoinRoom, RoomID: roomID})
	}
	assert.Equal(t, 2, h.reg.Occupancy(roomID))
}

func TestHub_LateSendsAfterStopDoNotPanic(t *testing.T) {
	h, _ := newTestHub()
	loopDone := make(chan struct{})
	go func() {
		h.Run()
		close(loopDone)
	}()
	c := NewClient(h, nil, "A")
	require.True(t, h.QueueRegister(c))

	h.Stop()
	select {
	case <-loopDone:
	case <-time.After(time.Second):
		t.Fatal("hub loop did not exit after Stop")
	}

	// A read pump on a hijacked connection can outlive server shutdown and
	// still push its last inbound frame and its teardown message.
	assert.NotPanics(t, func() {
		select {
		case h.messageChan <- hubMessage{kind: msgInbound, client: c, data: []byte(`{"type":"create-room"}`)}:
		default:
		}
		h.queueUnregister(c)
	})

	h.Stop()
}

func TestHub_TeardownDeliveredUnderLoad(t *testing.T) {
	h, _ := newTestHub()
	go h.Run()
	defer h.Stop()

	const n = 100
	clients := make([]*Client, 0, n)
	for i := 0; i < n; i++ {
		c := NewClient(h, nil, fmt.Sprintf("C%d", i))
		require.True(t, h.QueueRegister(c))
		clients = append(clients, c)
	}
	for _, c := range clients {
		go h.queueUnregister(c)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && h.ConnectionCount() != 0 {
		time.Sleep(5 * time.Millisecond)
	}
	assert.EqualValues(t, 0, h.ConnectionCount(), "every teardown must land, none dropped")
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}
