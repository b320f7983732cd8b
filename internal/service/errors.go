package service

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room is full")
	ErrNotInRoom      = errors.New("not in a room")
	ErrInternalServer = errors.New("internal server error")
)
