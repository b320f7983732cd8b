package registry

import (
	"crypto/rand"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
)

// Domain state errors surfaced to the lifecycle layer.
var (
	ErrRoomNotFound  = errors.New("registry: room not found")
	ErrRoomFull      = errors.New("registry: room is full")
	ErrNotInRoom     = errors.New("registry: connection not in a room")
	ErrAlreadyInRoom = errors.New("registry: connection already in a room")
)

type room struct {
	id        string
	members   map[string]struct{}
	createdAt time.Time
}

// Registry owns room existence, membership and the reverse connection->room
// mapping. All mutations happen on the hub's single event loop; the internal
// lock only lets read-only HTTP queries snapshot state concurrently.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[string]string // connection ID -> room ID
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		rooms:  make(map[string]*room),
		byConn: make(map[string]string),
	}
}

// CreateRoom allocates a fresh room code and inserts a room holding only the
// owner. Returns ErrAlreadyInRoom if the connection is still a member
// elsewhere. Codes are not checked against existing rooms; the identifier
// space is large relative to expected concurrent rooms and a collision is an
// accepted probabilistic risk.
func (r *Registry) CreateRoom(connID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[connID]; ok {
		return "", ErrAlreadyInRoom
	}
	id := newRoomCode()
	r.rooms[id] = &room{
		id:        id,
		members:   map[string]struct{}{connID: {}},
		createdAt: time.Now(),
	}
	r.byConn[connID] = id
	return id, nil
}

// Join adds a connection to an existing room and returns the new occupancy.
func (r *Registry) Join(connID, roomID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[connID]; ok {
		return 0, ErrAlreadyInRoom
	}
	rm, ok := r.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}
	if len(rm.members) >= domain.RoomCapacity {
		return 0, ErrRoomFull
	}
	rm.members[connID] = struct{}{}
	r.byConn[connID] = roomID
	return len(rm.members), nil
}

// Leave removes a connection from its current room. If the room becomes
// empty it is deleted in the same step; there is no observable empty-room
// state. Returns the room ID, the remaining occupancy and the IDs of the
// members still in the room.
func (r *Registry) Leave(connID string) (string, int, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	roomID, ok := r.byConn[connID]
	if !ok {
		return "", 0, nil, ErrNotInRoom
	}
	delete(r.byConn, connID)

	rm, ok := r.rooms[roomID]
	if !ok {
		// Reverse mapping pointed at a vanished room; treat as not-in-room.
		return "", 0, nil, ErrNotInRoom
	}
	delete(rm.members, connID)
	if len(rm.members) == 0 {
		delete(r.rooms, roomID)
		return roomID, 0, nil, nil
	}
	return roomID, len(rm.members), memberIDs(rm), nil
}

// RoomOf returns the room a connection currently belongs to.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byConn[connID]
	return id, ok
}

// Occupancy returns the current member count of a room, 0 if it does not
// exist.
func (r *Registry) Occupancy(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return 0
	}
	return len(rm.members)
}

// Exists reports whether a room is currently registered.
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Members returns the member connection IDs of a room.
func (r *Registry) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return memberIDs(rm)
}

// OtherMembers returns the members of a room excluding the given connection.
func (r *Registry) OtherMembers(roomID, connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rm.members))
	for id := range rm.members {
		if id != connID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// IsMember reports whether a connection currently belongs to the given room.
func (r *Registry) IsMember(roomID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byConn[connID] == roomID
}

// RoomCount returns the number of live rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// ActiveRooms snapshots every live room for the active-rooms query.
func (r *Registry) ActiveRooms() []domain.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, domain.RoomInfo{
			ID:        rm.id,
			UserCount: len(rm.members),
			Capacity:  domain.RoomCapacity,
			IsFull:    len(rm.members) >= domain.RoomCapacity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func memberIDs(rm *room) []string {
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

const roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
const roomCodeLength = 6

// newRoomCode generates a 6-character room code. No uniqueness check is
// performed; see CreateRoom.
func newRoomCode() string {
	b := make([]byte, roomCodeLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process is in a far worse state than
		// a signaling error can express.
		panic("registry: failed to read random bytes: " + err.Error())
	}
	for i := range b {
		b[i] = roomCodeAlphabet[int(b[i])%len(roomCodeAlphabet)]
	}
	return string(b)
}
