package domain

// RoomCapacity is the maximum number of peers a room can hold. The whole
// signaling flow assumes exactly two parties, so this is fixed.
const RoomCapacity = 2

// RoomInfo is the externally visible view of a live room, used by the
// active-rooms query and in lifecycle notifications.
type RoomInfo struct {
	ID        string `json:"id"`
	UserCount int    `json:"userCount"`
	Capacity  int    `json:"capacity"`
	IsFull    bool   `json:"isFull"`
}
