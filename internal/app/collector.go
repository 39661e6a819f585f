package app

import (
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// AnswerCollector keeps the first answer of every player for one round.
type AnswerCollector struct {
	mu      sync.Mutex
	answers map[string]domain.Answer
	seq     int
}

func NewAnswerCollector() *AnswerCollector {
	return &AnswerCollector{answers: make(map[string]domain.Answer)}
}

// Record stores the answer unless the player already answered this round.
// Skips never carry a timestamp. It reports whether the answer was stored.
func (c *AnswerCollector) Record(playerID string, choice domain.Choice, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.answers[playerID]; ok {
		return false
	}
	if choice.Skipped() {
		at = time.Time{}
	}
	c.seq++
	c.answers[playerID] = domain.Answer{
		PlayerID: playerID,
		Choice:   choice,
		At:       at,
		Seq:      c.seq,
	}
	return true
}

// Answer returns the recorded answer for a player.
func (c *AnswerCollector) Answer(playerID string) (domain.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.answers[playerID]
	return a, ok
}

// Len returns the number of recorded answers, including those of players who have left.
func (c *AnswerCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers)
}

// Ballots yields one ballot per given player, in the given order.
func (c *AnswerCollector) Ballots(playerIDs []string) []Ballot {
	c.mu.Lock()
	defer c.mu.Unlock()

	ballots := make([]Ballot, 0, len(playerIDs))
	for _, id := range playerIDs {
		a, ok := c.answers[id]
		ballots = append(ballots, Ballot{PlayerID: id, Answer: a, Answered: ok})
	}
	return ballots
}
