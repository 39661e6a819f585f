package app

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"trivia-service/internal/domain"
)

// Session is one game room: LOBBY -> QUESTION_ACTIVE <-> ROUND_SETTLED -> GAME_OVER.
// All mutation happens under mu; the round countdown runs on its own goroutine and re-enters
// through settle.
type Session struct {
	code           string
	hostID         string
	createdAt      time.Time
	clock          Clock
	publisher      Publisher
	defaultSeconds int
	onGameOver     func(*Session)

	mu        sync.Mutex
	status    domain.Status
	players   []*domain.Player
	questions []domain.Question
	index     int
	round     *round
	roundSeq  int
	closed    bool
}

// round is the active question: at most one exists per session.
type round struct {
	seq       int
	question  domain.Question
	collector *AnswerCollector
	scheduler *RoundScheduler
	startedAt time.Time
}

// SessionOptions configures a new session.
type SessionOptions struct {
	Code            string
	HostID          string
	Clock           Clock
	Publisher       Publisher
	QuestionSeconds int
	OnGameOver      func(*Session)
}

// NewSession creates a room in the LOBBY state.
func NewSession(opts SessionOptions) *Session {
	seconds := opts.QuestionSeconds
	if seconds <= 0 {
		seconds = DefaultQuestionSeconds
	}
	return &Session{
		code:           opts.Code,
		hostID:         opts.HostID,
		createdAt:      opts.Clock.Now(),
		clock:          opts.Clock,
		publisher:      opts.Publisher,
		defaultSeconds: seconds,
		onGameOver:     opts.OnGameOver,
		status:         domain.StatusLobby,
	}
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) HostID() string {
	return s.hostID
}

// Status returns the current lifecycle state.
func (s *Session) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the room's public state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSnapshot{
		RoomCode:      s.code,
		HostID:        s.hostID,
		Status:        s.status,
		QuestionIndex: s.index,
		QuestionCount: len(s.questions),
		Players:       s.playersLocked(),
		CreatedAt:     s.createdAt,
	}
}

// HasPlayer reports whether connID is a player in this room.
func (s *Session) HasPlayer(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findPlayerLocked(connID) != nil
}

// Join adds a player to a room that is still in the lobby.
func (s *Session) Join(connID, name string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.Player{}, domain.ErrRoomNotFound
	}
	if s.status != domain.StatusLobby {
		return domain.Player{}, domain.ErrGameInProgress
	}
	if connID == s.hostID {
		return domain.Player{}, domain.ErrInvalidState
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Player{}, domain.ErrInvalidName
	}
	for _, p := range s.players {
		if p.Name == name {
			return domain.Player{}, domain.ErrNameTaken
		}
		if p.ID == connID {
			return domain.Player{}, domain.ErrInvalidState
		}
	}

	player := &domain.Player{ID: connID, Name: name}
	s.players = append(s.players, player)

	s.publisher.Attach(s.code, connID)
	s.publisher.Send(connID, domain.Event{Type: domain.EventJoined, Payload: domain.JoinedPayload{RoomCode: s.code, Name: name}})
	s.broadcastPlayersLocked()

	log.Info().Str("room", s.code).Str("player", name).Msg("player joined")
	return *player, nil
}

// Start begins the game with the given questions. Only the host may start, and only from the lobby.
func (s *Session) Start(connID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrRoomNotFound
	}
	if connID != s.hostID {
		return domain.ErrNotAuthorized
	}
	if s.status != domain.StatusLobby {
		return domain.ErrInvalidState
	}
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}

	for _, p := range s.players {
		p.ResetStats()
	}
	s.questions = append([]domain.Question(nil), questions...)
	s.index = 0

	log.Info().Str("room", s.code).Int("questions", len(s.questions)).Int("players", len(s.players)).Msg("game started")

	s.broadcastPlayersLocked()
	return s.beginRoundLocked()
}

// SubmitAnswer records a player's answer for the active round. Later answers from the same
// player in the same round are ignored.
func (s *Session) SubmitAnswer(connID string, choice domain.Choice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrRoomNotFound
	}
	if s.status != domain.StatusQuestionActive || s.round == nil {
		return domain.ErrInvalidState
	}
	if s.findPlayerLocked(connID) == nil {
		return domain.ErrNotInRoom
	}
	if option, ok := choice.Option(); ok && (option < 0 || option >= len(s.round.question.Options)) {
		return domain.ErrInvalidOption
	}

	if !s.round.collector.Record(connID, choice, s.clock.Now()) {
		log.Debug().Str("room", s.code).Str("player", connID).Msg("duplicate answer ignored")
	}
	return nil
}

// NextQuestion advances past a settled round, ending the game after the last question.
func (s *Session) NextQuestion(connID string) error {
	s.mu.Lock()
	over, err := s.nextQuestionLocked(connID)
	s.mu.Unlock()

	if over && s.onGameOver != nil {
		s.onGameOver(s)
	}
	return err
}

func (s *Session) nextQuestionLocked(connID string) (bool, error) {
	if s.closed {
		return false, domain.ErrRoomNotFound
	}
	if connID != s.hostID {
		return false, domain.ErrNotAuthorized
	}
	if s.status != domain.StatusRoundSettled {
		return false, domain.ErrInvalidState
	}

	s.index++
	if s.index < len(s.questions) {
		return false, s.beginRoundLocked()
	}
	s.endGameLocked()
	return true, nil
}

// RemovePlayer drops a disconnected player. Their answer for the active round, if any, stays in
// the collector but they are no longer settled. It reports whether the player was present.
func (s *Session) RemovePlayer(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.players {
		if p.ID != connID {
			continue
		}
		s.players = append(s.players[:i], s.players[i+1:]...)
		s.publisher.Detach(s.code, connID)
		if !s.closed {
			s.broadcastPlayersLocked()
		}
		log.Info().Str("room", s.code).Str("player", p.Name).Msg("player left")
		return true
	}
	return false
}

// Close tears the room down: the active countdown is cancelled and, when reason is non-empty,
// members are told why. Only the first call has any effect and reports true.
func (s *Session) Close(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	if s.round != nil {
		s.round.scheduler.Cancel()
		s.round = nil
	}
	if reason != "" {
		s.publisher.Broadcast(s.code, domain.Event{Type: domain.EventGameEnded, Payload: domain.GameEndedPayload{Reason: reason}})
	}
	return true
}

// beginRoundLocked publishes the question at the current index and starts its countdown.
func (s *Session) beginRoundLocked() error {
	if s.index < 0 || s.index >= len(s.questions) {
		// Leave the room somewhere the host can recover from.
		log.Error().Str("room", s.code).Int("index", s.index).Msg("no question at current index")
		s.status = domain.StatusRoundSettled
		return domain.ErrQuestionNotFound
	}

	q := s.questions[s.index]
	seconds := q.Seconds
	if seconds <= 0 {
		seconds = s.defaultSeconds
	}

	s.roundSeq++
	seq := s.roundSeq
	r := &round{
		seq:       seq,
		question:  q,
		collector: NewAnswerCollector(),
	}
	r.scheduler = NewRoundScheduler(s.clock, seconds,
		func(ev domain.Event) { s.publisher.Broadcast(s.code, ev) },
		func() { s.settle(seq) },
	)
	s.round = r
	s.status = domain.StatusQuestionActive

	r.startedAt = r.scheduler.Start(domain.QuestionPayload{
		Index:   s.index,
		Total:   len(s.questions),
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
		Time:    seconds,
	})

	log.Info().Str("room", s.code).Int("question", s.index+1).Int("total", len(s.questions)).Msg("question sent")
	return nil
}

// settle scores the round identified by seq. Stale or duplicate calls are ignored.
func (s *Session) settle(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round == nil || s.round.seq != seq || s.status != domain.StatusQuestionActive {
		log.Debug().Str("room", s.code).Int("round", seq).Msg("skipping stale settlement")
		return
	}
	r := s.round
	s.round = nil
	s.status = domain.StatusRoundSettled

	ids := make([]string, len(s.players))
	for i, p := range s.players {
		ids[i] = p.ID
	}
	tally := Score(r.question.Correct, r.startedAt, r.collector.Ballots(ids))

	results := make([]domain.PlayerResult, len(s.players))
	var fastest *domain.FastestCorrect
	for i, p := range s.players {
		v := tally.Verdicts[i]
		v.Apply(p)
		results[i] = domain.PlayerResult{
			ID:                p.ID,
			Name:              p.Name,
			Score:             p.Score,
			Delta:             v.Delta,
			Answer:            v.Option,
			ResponseTime:      v.ResponseTime,
			IsCorrect:         v.Correct,
			IsSkipped:         v.Skipped,
			SpeedBonus:        v.Bonus,
			Rank:              v.Rank,
			TotalResponseTime: p.TotalResponseTime,
			QuestionsAnswered: p.QuestionsAnswered,
			CorrectAnswers:    p.CorrectAnswers,
			IncorrectAnswers:  p.IncorrectAnswers,
			SkippedAnswers:    p.SkippedAnswers,
		}
		if tally.Fastest != nil && tally.Fastest.PlayerID == p.ID {
			fastest = &domain.FastestCorrect{ID: p.ID, Name: p.Name, ResponseTime: *v.ResponseTime}
		}
	}

	s.publisher.Broadcast(s.code, domain.Event{Type: domain.EventRoundResult, Payload: domain.RoundResult{
		CorrectIndex:   r.question.Correct,
		Players:        s.playersLocked(),
		PlayerResults:  results,
		FastestCorrect: fastest,
		RoundStats: domain.RoundStats{
			TotalPlayers:        len(s.players),
			TotalAnswered:       tally.Answered,
			CorrectAnswers:      tally.Correct,
			AverageResponseTime: tally.AverageResponseTime,
		},
	}})

	log.Info().
		Str("room", s.code).
		Int("question", s.index+1).
		Int("answered", tally.Answered).
		Int("correct", tally.Correct).
		Msg("round settled")
}

func (s *Session) endGameLocked() {
	s.status = domain.StatusGameOver

	standings := s.playersLocked()
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	s.publisher.Broadcast(s.code, domain.Event{Type: domain.EventGameOver, Payload: domain.GameOverPayload{Players: standings}})

	log.Info().Str("room", s.code).Int("players", len(standings)).Msg("game over")
}

func (s *Session) broadcastPlayersLocked() {
	s.publisher.Broadcast(s.code, domain.Event{Type: domain.EventPlayers, Payload: s.playersLocked()})
}

// playersLocked copies the players in join order.
func (s *Session) playersLocked() []domain.Player {
	players := make([]domain.Player, len(s.players))
	for i, p := range s.players {
		players[i] = *p
	}
	return players
}

func (s *Session) findPlayerLocked(connID string) *domain.Player {
	for _, p := range s.players {
		if p.ID == connID {
			return p
		}
	}
	return nil
}
