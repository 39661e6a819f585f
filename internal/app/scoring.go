package app

import (
	"sort"
	"time"

	"trivia-service/internal/domain"
)

const (
	// CorrectReward is added for a correct answer.
	CorrectReward = 5
	// WrongPenalty is added for a wrong answer.
	WrongPenalty = -5
)

// speedBonuses is indexed by speed rank among correct responders.
var speedBonuses = [...]int{10, 5, 2}

// SpeedBonus returns the bonus for the given 0-based speed rank.
func SpeedBonus(rank int) int {
	if rank < 0 || rank >= len(speedBonuses) {
		return 0
	}
	return speedBonuses[rank]
}

// Ballot is what the scoring engine sees for one player: their first answer, if any.
type Ballot struct {
	PlayerID string
	Answer   domain.Answer
	Answered bool
}

// Verdict is the scoring outcome for one ballot.
type Verdict struct {
	PlayerID     string
	Delta        int
	Option       *int
	Correct      bool
	Skipped      bool
	ResponseTime *float64 // seconds; only set for non-skip answers
	Bonus        int
	Rank         *int
}

// Apply folds the verdict into the player's cumulative statistics.
func (v Verdict) Apply(p *domain.Player) {
	p.Score += v.Delta
	switch {
	case v.Skipped:
		p.SkippedAnswers++
	case v.Correct:
		p.CorrectAnswers++
		if v.ResponseTime != nil {
			p.TotalResponseTime += *v.ResponseTime
			p.QuestionsAnswered++
		}
	default:
		p.IncorrectAnswers++
	}
}

// Tally is the scored round: one verdict per ballot, in ballot order, plus room aggregates.
type Tally struct {
	Verdicts            []Verdict
	Answered            int
	Correct             int
	AverageResponseTime float64
	Fastest             *Verdict
}

type rankedAnswer struct {
	idx int
	rt  float64
	seq int
}

// Score settles a round. It is a pure function of its inputs: the same ballots always produce
// the same tally. Speed ranks order correct responders by response time, then arrival order.
func Score(correct int, startedAt time.Time, ballots []Ballot) Tally {
	tally := Tally{Verdicts: make([]Verdict, len(ballots))}
	ranked := make([]rankedAnswer, 0, len(ballots))

	for i, b := range ballots {
		v := Verdict{PlayerID: b.PlayerID}
		if b.Answered {
			tally.Answered++
		}

		option, ok := b.Answer.Choice.Option()
		if !b.Answered || !ok {
			v.Skipped = true
			tally.Verdicts[i] = v
			continue
		}
		v.Option = &option
		if !b.Answer.At.IsZero() {
			rt := b.Answer.At.Sub(startedAt).Seconds()
			v.ResponseTime = &rt
		}

		if option != correct {
			v.Delta += WrongPenalty
			tally.Verdicts[i] = v
			continue
		}

		v.Correct = true
		v.Delta += CorrectReward
		tally.Correct++
		if v.ResponseTime != nil {
			ranked = append(ranked, rankedAnswer{idx: i, rt: *v.ResponseTime, seq: b.Answer.Seq})
		}
		tally.Verdicts[i] = v
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].rt != ranked[j].rt {
			return ranked[i].rt < ranked[j].rt
		}
		return ranked[i].seq < ranked[j].seq
	})

	var sum float64
	for rank, r := range ranked {
		v := &tally.Verdicts[r.idx]
		rank := rank
		v.Rank = &rank
		v.Bonus = SpeedBonus(rank)
		v.Delta += v.Bonus
		sum += r.rt
	}
	if len(ranked) > 0 {
		tally.AverageResponseTime = sum / float64(len(ranked))
		tally.Fastest = &tally.Verdicts[ranked[0].idx]
	}
	return tally
}
