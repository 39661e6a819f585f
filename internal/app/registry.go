package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"trivia-service/internal/domain"
)

const (
	DefaultQuestionSeconds = 15
	DefaultRetention       = time.Hour
	DefaultCodeAttempts    = 32
)

// SessionRepository abstracts where live rooms are kept (in-memory, Redis-backed, etc).
type SessionRepository interface {
	// Insert stores the session under code unless the code is already taken.
	Insert(ctx context.Context, code string, session *Session) (bool, error)
	Get(code string) (*Session, bool)
	Delete(code string)
	List() []*Session
}

// QuestionRepository supplies the question bank (from cache/backing store).
type QuestionRepository interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// Publisher delivers events to room members and single connections.
// Implementations must be safe for concurrent use and must not block.
type Publisher interface {
	Attach(roomCode, connID string)
	Detach(roomCode, connID string)
	Broadcast(roomCode string, event domain.Event)
	Send(connID string, event domain.Event)
	CloseRoom(roomCode string)
}

// Settings are the game rules that come from configuration.
type Settings struct {
	QuestionSeconds int
	Retention       time.Duration
	CodeAttempts    int
	Selection       domain.Selection
}

// Option customises a Registry.
type Option func(*Registry)

// WithClock swaps the time source, typically for a clockwork.FakeClock in tests.
func WithClock(clock Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithSettings overrides the default game rules.
func WithSettings(settings Settings) Option {
	return func(r *Registry) { r.settings = settings }
}

// WithCodeGenerator overrides room code generation.
func WithCodeGenerator(codes CodeGenerator) Option {
	return func(r *Registry) { r.codes = codes }
}

// Registry owns every live room. It routes inbound requests to the right session and handles
// room creation, teardown and disconnects.
type Registry struct {
	sessions  SessionRepository
	questions QuestionRepository
	publisher Publisher
	clock     Clock
	settings  Settings
	codes     CodeGenerator

	mu      sync.Mutex
	reapers map[string]clockwork.Timer
}

func NewRegistry(sessions SessionRepository, questions QuestionRepository, publisher Publisher, opts ...Option) *Registry {
	r := &Registry{
		sessions:  sessions,
		questions: questions,
		publisher: publisher,
		clock:     clockwork.NewRealClock(),
		codes:     NewCodeGenerator(),
		reapers:   make(map[string]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.settings.QuestionSeconds <= 0 {
		r.settings.QuestionSeconds = DefaultQuestionSeconds
	}
	if r.settings.Retention <= 0 {
		r.settings.Retention = DefaultRetention
	}
	if r.settings.CodeAttempts <= 0 {
		r.settings.CodeAttempts = DefaultCodeAttempts
	}
	return r
}

// CreateSession opens a new room owned by hostID and returns its code.
func (r *Registry) CreateSession(ctx context.Context, hostID string) (string, error) {
	for attempt := 0; attempt < r.settings.CodeAttempts; attempt++ {
		code := r.codes()
		session := NewSession(SessionOptions{
			Code:            code,
			HostID:          hostID,
			Clock:           r.clock,
			Publisher:       r.publisher,
			QuestionSeconds: r.settings.QuestionSeconds,
			OnGameOver:      r.scheduleReap,
		})
		ok, err := r.sessions.Insert(ctx, code, session)
		if err != nil {
			return "", fmt.Errorf("insert session: %w", err)
		}
		if !ok {
			log.Debug().Str("room", code).Int("attempt", attempt+1).Msg("room code collision, retrying")
			continue
		}

		r.publisher.Attach(code, hostID)
		r.publisher.Send(hostID, domain.Event{Type: domain.EventGameCreated, Payload: domain.GameCreatedPayload{RoomCode: code}})
		log.Info().Str("room", code).Str("host", hostID).Msg("game created")
		return code, nil
	}
	return "", domain.ErrCodeSpaceExhausted
}

// Lookup returns the live session for code.
func (r *Registry) Lookup(code string) (*Session, bool) {
	return r.sessions.Get(code)
}

// Join adds connID to the room as a player called name. A connection belongs to at most one
// room, so hosts and players of any live room are rejected.
func (r *Registry) Join(_ context.Context, code, connID, name string) (domain.Player, error) {
	session, ok := r.sessions.Get(code)
	if !ok {
		return domain.Player{}, domain.ErrRoomNotFound
	}
	for _, other := range r.sessions.List() {
		if other.HostID() == connID || other.HasPlayer(connID) {
			log.Debug().Str("room", code).Str("conn", connID).Str("member_of", other.Code()).Msg("join rejected, already in a room")
			return domain.Player{}, domain.ErrInvalidState
		}
	}
	return session.Join(connID, name)
}

// Start loads and selects the question bank, then starts the room's first round.
func (r *Registry) Start(ctx context.Context, code, connID string) error {
	session, ok := r.sessions.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	// Avoid loading the bank for requests that will be rejected anyway.
	if session.HostID() != connID {
		return domain.ErrNotAuthorized
	}
	if session.Status() != domain.StatusLobby {
		return domain.ErrInvalidState
	}

	bank, err := r.questions.ListQuestions(ctx)
	if err != nil {
		log.Error().Err(err).Str("room", code).Msg("failed to load questions")
		return fmt.Errorf("%w: %v", domain.ErrNoQuestions, err)
	}
	return session.Start(connID, SelectQuestions(bank, r.settings.Selection))
}

// NextQuestion advances the room after a settled round.
func (r *Registry) NextQuestion(_ context.Context, code, connID string) error {
	session, ok := r.sessions.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return session.NextQuestion(connID)
}

// SubmitAnswer forwards a player's answer to the room's active round.
func (r *Registry) SubmitAnswer(_ context.Context, code, connID string, choice domain.Choice) error {
	session, ok := r.sessions.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return session.SubmitAnswer(connID, choice)
}

// RemoveSession cancels the room's countdown and discards it. It is idempotent.
func (r *Registry) RemoveSession(code string) {
	r.terminate(code, "")
}

// OnDisconnect handles a closed connection: a host takes their room down with them, a player is
// removed from whichever room they were in.
func (r *Registry) OnDisconnect(connID string) {
	for _, session := range r.sessions.List() {
		if session.HostID() == connID {
			r.terminate(session.Code(), "Host disconnected")
			continue
		}
		session.RemovePlayer(connID)
	}
}

// Close tears down every room, e.g. on shutdown.
func (r *Registry) Close() {
	for _, session := range r.sessions.List() {
		r.terminate(session.Code(), "Server shutting down")
	}
}

func (r *Registry) terminate(code, reason string) {
	session, ok := r.sessions.Get(code)
	if !ok {
		return
	}
	r.terminateSession(session, reason)
}

// terminateSession removes session if it is still live. The code is only freed by whoever
// closed the session, so a stale caller can never remove a newer room that reuses the code.
func (r *Registry) terminateSession(session *Session, reason string) {
	if !session.Close(reason) {
		return
	}
	code := session.Code()

	r.mu.Lock()
	if t, ok := r.reapers[code]; ok {
		t.Stop()
		delete(r.reapers, code)
	}
	r.mu.Unlock()

	r.sessions.Delete(code)
	r.publisher.CloseRoom(code)
	log.Info().Str("room", code).Str("reason", reason).Msg("room removed")
}

// scheduleReap removes a finished room once the retention window has passed.
func (r *Registry) scheduleReap(session *Session) {
	code := session.Code()

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions.Get(code); !ok || current != session {
		return
	}
	if t, ok := r.reapers[code]; ok {
		t.Stop()
	}
	var timer clockwork.Timer
	timer = r.clock.AfterFunc(r.settings.Retention, func() {
		r.mu.Lock()
		if r.reapers[code] == timer {
			delete(r.reapers, code)
		}
		r.mu.Unlock()
		r.terminateSession(session, "")
	})
	r.reapers[code] = timer
}
