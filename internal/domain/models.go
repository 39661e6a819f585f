package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a game room.
type Status string

const (
	StatusLobby          Status = "LOBBY"
	StatusQuestionActive Status = "QUESTION_ACTIVE"
	StatusRoundSettled   Status = "ROUND_SETTLED"
	StatusGameOver       Status = "GAME_OVER"
)

// Player is a participant in a room together with their running statistics.
type Player struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Score             int     `json:"score"`
	TotalResponseTime float64 `json:"totalResponseTime"`
	QuestionsAnswered int     `json:"questionsAnswered"` // correct answers that carried a response time
	CorrectAnswers    int     `json:"correctAnswers"`
	IncorrectAnswers  int     `json:"incorrectAnswers"`
	SkippedAnswers    int     `json:"skippedAnswers"`
}

// ResetStats zeroes every cumulative field.
func (p *Player) ResetStats() {
	p.Score = 0
	p.TotalResponseTime = 0
	p.QuestionsAnswered = 0
	p.CorrectAnswers = 0
	p.IncorrectAnswers = 0
	p.SkippedAnswers = 0
}

// Question is a multiple choice question with exactly one correct option.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
	Seconds int      `json:"seconds,omitempty"` // falls back to the configured default if zero
}

// Validate reports whether the question can be played.
func (q Question) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("question %d: empty text", q.ID)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %d: need at least two options, got %d", q.ID, len(q.Options))
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("question %d: correct index %d out of range", q.ID, q.Correct)
	}
	if q.Seconds < 0 {
		return fmt.Errorf("question %d: negative seconds", q.ID)
	}
	return nil
}

// Selection narrows a question bank down to the questions played in one session.
// Zero values mean "no constraint".
type Selection struct {
	MinID int `yaml:"min_id"`
	MaxID int `yaml:"max_id"`
	Limit int `yaml:"limit"`
}

// Choice is a player's answer for a round: either an option index or an explicit skip.
type Choice struct {
	option  int
	skipped bool
}

// Pick answers with the option at index i.
func Pick(i int) Choice {
	return Choice{option: i}
}

// Skip passes on the current question.
func Skip() Choice {
	return Choice{skipped: true}
}

// Skipped reports whether the choice is an explicit skip.
func (c Choice) Skipped() bool {
	return c.skipped
}

// Option returns the chosen index; ok is false for a skip.
func (c Choice) Option() (int, bool) {
	if c.skipped {
		return 0, false
	}
	return c.option, true
}

func (c Choice) String() string {
	if c.skipped {
		return "skip"
	}
	return fmt.Sprintf("option(%d)", c.option)
}

// Answer is the first choice recorded for a player in a round.
type Answer struct {
	PlayerID string
	Choice   Choice
	At       time.Time // zero for skips
	Seq      int       // arrival order within the round
}

// PlayerResult is one player's outcome for a settled round.
type PlayerResult struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Score             int      `json:"score"`
	Delta             int      `json:"delta"`
	Answer            *int     `json:"answer"`
	ResponseTime      *float64 `json:"responseTime"`
	IsCorrect         bool     `json:"isCorrect"`
	IsSkipped         bool     `json:"isSkipped"`
	SpeedBonus        int      `json:"speedBonus"`
	Rank              *int     `json:"rank,omitempty"` // 0 is the fastest correct responder
	TotalResponseTime float64  `json:"totalResponseTime"`
	QuestionsAnswered int      `json:"questionsAnswered"`
	CorrectAnswers    int      `json:"correctAnswers"`
	IncorrectAnswers  int      `json:"incorrectAnswers"`
	SkippedAnswers    int      `json:"skippedAnswers"`
}

// FastestCorrect names the quickest correct responder of a round.
type FastestCorrect struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ResponseTime float64 `json:"responseTime"`
}

// RoundStats aggregates a round across the room.
type RoundStats struct {
	TotalPlayers        int     `json:"totalPlayers"`
	TotalAnswered       int     `json:"totalAnswered"`
	CorrectAnswers      int     `json:"correctAnswers"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

// RoundResult is broadcast once a round's timer expires.
type RoundResult struct {
	CorrectIndex   int             `json:"correctIndex"`
	Players        []Player        `json:"players"`
	PlayerResults  []PlayerResult  `json:"playerResults"`
	FastestCorrect *FastestCorrect `json:"fastestCorrect"`
	RoundStats     RoundStats      `json:"roundStats"`
}

// SessionSnapshot is a read-only view of a room.
type SessionSnapshot struct {
	RoomCode      string    `json:"roomCode"`
	HostID        string    `json:"hostId"`
	Status        Status    `json:"status"`
	QuestionIndex int       `json:"questionIndex"`
	QuestionCount int       `json:"questionCount"`
	Players       []Player  `json:"players"`
	CreatedAt     time.Time `json:"createdAt"`
}
