package domain

import "errors"

var (
	ErrMissingField  = errors.New("missing required field")
	ErrRoomExists    = errors.New("room already exists")
	ErrRoomNotFound  = errors.New("room not found")
	ErrAuthFailed    = errors.New("join secret mismatch")
	ErrAlreadyJoined = errors.New("connection already joined a room")
	ErrInvalidInput  = errors.New("invalid input")
)

// ErrorCode maps a join-path error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "missing"
	case errors.Is(err, ErrRoomExists):
		return "exists"
	case errors.Is(err, ErrRoomNotFound):
		return "notfound"
	case errors.Is(err, ErrAuthFailed):
		return "auth"
	case errors.Is(err, ErrAlreadyJoined):
		return "joined"
	default:
		return "internal"
	}
}
