package lobby

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrInvalidOptions = errors.New("invalid room options")
)
