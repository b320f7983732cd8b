package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swoosh-transfer/Swoosh-backend/internal/domain"
	"github.com/swoosh-transfer/Swoosh-backend/internal/registry"
)

func TestRegistry_CreateRoom(t *testing.T) {
	reg := registry.New()

	roomID, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)
	assert.Len(t, roomID, 6, "room code should be 6 characters")
	assert.True(t, reg.Exists(roomID))
	assert.Equal(t, 1, reg.Occupancy(roomID))

	got, ok := reg.RoomOf("conn-a")
	require.True(t, ok)
	assert.Equal(t, roomID, got)
}

func TestRegistry_CreateRoom_AlreadyInRoom(t *testing.T) {
	reg := registry.New()

	_, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)

	_, err = reg.CreateRoom("conn-a")
	assert.ErrorIs(t, err, registry.ErrAlreadyInRoom)
	assert.Equal(t, 1, reg.RoomCount(), "failed create must not leak a room")
}

func TestRegistry_Join(t *testing.T) {
	reg := registry.New()
	roomID, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)

	occupancy, err := reg.Join("conn-b", roomID)
	require.NoError(t, err)
	assert.Equal(t, 2, occupancy)
	assert.True(t, reg.IsMember(roomID, "conn-b"))
	assert.Equal(t, []string{"conn-a"}, reg.OtherMembers(roomID, "conn-b"))
}

func TestRegistry_Join_RoomNotFound(t *testing.T) {
	reg := registry.New()

	_, err := reg.Join("conn-a", "ZZZZZZ")
	assert.ErrorIs(t, err, registry.ErrRoomNotFound)

	_, ok := reg.RoomOf("conn-a")
	assert.False(t, ok, "failed join must not record a reverse mapping")
}

func TestRegistry_Join_RoomFull(t *testing.T) {
	reg := registry.New()
	roomID, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)
	_, err = reg.Join("conn-b", roomID)
	require.NoError(t, err)

	_, err = reg.Join("conn-c", roomID)
	assert.ErrorIs(t, err, registry.ErrRoomFull)
	assert.Equal(t, 2, reg.Occupancy(roomID), "occupancy must stay at capacity")
	assert.False(t, reg.IsMember(roomID, "conn-c"))
}

func TestRegistry_Join_AlreadyInRoom(t *testing.T) {
	reg := registry.New()
	first, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)
	second, err := reg.CreateRoom("conn-b")
	require.NoError(t, err)

	_, err = reg.Join("conn-a", second)
	assert.ErrorIs(t, err, registry.ErrAlreadyInRoom)

	got, _ := reg.RoomOf("conn-a")
	assert.Equal(t, first, got, "membership must be unchanged after rejected join")
}

func TestRegistry_Leave_RemainingMember(t *testing.T) {
	reg := registry.New()
	roomID, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)
	_, err = reg.Join("conn-b", roomID)
	require.NoError(t, err)

	left, remaining, members, err := reg.Leave("conn-a")
	require.NoError(t, err)
	assert.Equal(t, roomID, left)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, []string{"conn-b"}, members)
	assert.True(t, reg.Exists(roomID), "room with a remaining member must survive")

	_, ok := reg.RoomOf("conn-a")
	assert.False(t, ok)
}

func TestRegistry_Leave_LastMemberDeletesRoom(t *testing.T) {
	reg := registry.New()
	roomID, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)

	left, remaining, members, err := reg.Leave("conn-a")
	require.NoError(t, err)
	assert.Equal(t, roomID, left)
	assert.Zero(t, remaining)
	assert.Empty(t, members)
	assert.False(t, reg.Exists(roomID), "empty room must be deleted in the same step")
	assert.Zero(t, reg.RoomCount())
}

func TestRegistry_Leave_NotInRoom(t *testing.T) {
	reg := registry.New()

	_, _, _, err := reg.Leave("ghost")
	assert.ErrorIs(t, err, registry.ErrNotInRoom)

	// Leaving twice is indistinguishable from never having joined.
	roomID, err := reg.CreateRoom("conn-a")
	require.NoError(t, err)
	_, _, _, err = reg.Leave("conn-a")
	require.NoError(t, err)
	_, _, _, err = reg.Leave("conn-a")
	assert.ErrorIs(t, err, registry.ErrNotInRoom)
	assert.False(t, reg.Exists(roomID))
}

func TestRegistry_CapacityInvariant(t *testing.T) {
	// Occupancy must stay within {0,1,2} across an arbitrary operation mix.
	reg := registry.New()
	roomID, err := reg.CreateRoom("a")
	require.NoError(t, err)

	conns := []string{"b", "c", "d", "e"}
	for _, c := range conns {
		_, _ = reg.Join(c, roomID)
		occ := reg.Occupancy(roomID)
		assert.LessOrEqual(t, occ, domain.RoomCapacity)
		assert.GreaterOrEqual(t, occ, 0)
	}
	assert.Equal(t, 2, reg.Occupancy(roomID))

	_, _, _, err = reg.Leave("a")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Occupancy(roomID))

	// Freed slot can be taken again.
	occ, err := reg.Join("d", roomID)
	require.NoError(t, err)
	assert.Equal(t, 2, occ)
}

func TestRegistry_ActiveRooms(t *testing.T) {
	reg := registry.New()
	r1, err := reg.CreateRoom("a")
	require.NoError(t, err)
	r2, err := reg.CreateRoom("b")
	require.NoError(t, err)
	_, err = reg.Join("c", r2)
	require.NoError(t, err)

	rooms := reg.ActiveRooms()
	require.Len(t, rooms, 2)
	byID := map[string]domain.RoomInfo{rooms[0].ID: rooms[0], rooms[1].ID: rooms[1]}

	assert.Equal(t, 1, byID[r1].UserCount)
	assert.False(t, byID[r1].IsFull)
	assert.Equal(t, 2, byID[r2].UserCount)
	assert.True(t, byID[r2].IsFull)
	assert.Equal(t, domain.RoomCapacity, byID[r1].Capacity)
}

func TestRegistry_RoomCodeAlphabet(t *testing.T) {
	reg := registry.New()
	for i := 0; i < 50; i++ {
		roomID, err := reg.CreateRoom("conn")
		require.NoError(t, err)
		for _, ch := range roomID {
			assert.Contains(t, "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ", string(ch))
		}
		_, _, _, err = reg.Leave("conn")
		require.NoError(t, err)
	}
}
