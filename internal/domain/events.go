package domain

// EventType names an outbound message on the wire.
type EventType string

const (
	EventGameCreated EventType = "game_created"
	EventPlayers     EventType = "update_players"
	EventJoined      EventType = "player_joined_success"
	EventNewQuestion EventType = "new_question"
	EventTimerTick   EventType = "timer_tick"
	EventRoundResult EventType = "round_result"
	EventGameOver    EventType = "game_over"
	EventGameEnded   EventType = "game_ended"
	EventError       EventType = "error_msg"
)

// Event is the envelope delivered to room members.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// GameCreatedPayload is sent to the host after creating a room.
type GameCreatedPayload struct {
	RoomCode string `json:"roomCode"`
}

// JoinedPayload is sent to a player whose join was accepted.
type JoinedPayload struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

// QuestionPayload is the public view of a question; it never carries the correct index.
type QuestionPayload struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Time    int      `json:"time"`
}

// TickPayload reports the seconds remaining in the active round.
type TickPayload struct {
	Remaining int `json:"remaining"`
}

// GameOverPayload carries the final standings, highest score first.
type GameOverPayload struct {
	Players []Player `json:"players"`
}

// GameEndedPayload tells members the room was torn down.
type GameEndedPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload is sent only to the connection that caused the error.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewErrorEvent builds an error_msg event for err.
func NewErrorEvent(err error) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Code: ErrorCode(err), Message: err.Error()}}
}
