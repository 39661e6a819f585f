package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code does not match a live session.
	ErrRoomNotFound = errors.New("invalid room code")
	// ErrGameInProgress is returned when joining a room that already left the lobby.
	ErrGameInProgress = errors.New("game already in progress")
	// ErrNameTaken is returned when the display name is already used in the room.
	ErrNameTaken = errors.New("name taken in this room")
	// ErrInvalidName rejects empty display names.
	ErrInvalidName = errors.New("name must not be empty")
	// ErrInvalidOption indicates a submitted option index is outside the question's options.
	ErrInvalidOption = errors.New("option out of range")
	// ErrNotAuthorized is returned when a non-host invokes a host-only operation.
	ErrNotAuthorized = errors.New("only the host can do that")
	// ErrInvalidState is returned when an operation does not apply to the room's current state.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrNotInRoom is returned when a connection acts on a room it has not joined.
	ErrNotInRoom = errors.New("player not in room")
	// ErrNoQuestions indicates the question bank had nothing to play.
	ErrNoQuestions = errors.New("no questions available")
	// ErrQuestionNotFound indicates the current index has no question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCodeSpaceExhausted is returned when no unused room code could be generated.
	ErrCodeSpaceExhausted = errors.New("could not allocate a room code")
)

// ErrorCode maps client-facing errors to the short codes sent over the wire.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "invalid-room"
	case errors.Is(err, ErrGameInProgress):
		return "game-in-progress"
	case errors.Is(err, ErrNameTaken):
		return "name-taken"
	case errors.Is(err, ErrInvalidName):
		return "invalid-name"
	case errors.Is(err, ErrInvalidOption):
		return "invalid-option"
	case errors.Is(err, ErrNoQuestions):
		return "no-questions"
	case errors.Is(err, ErrCodeSpaceExhausted):
		return "room-unavailable"
	default:
		return ""
	}
}

// Silent reports whether err should be swallowed rather than reported to the client.
func Silent(err error) bool {
	return errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotInRoom)
}
