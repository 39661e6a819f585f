package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"trivia-service/internal/domain"
)

// RoundScheduler owns the countdown of a single question. It publishes the question, emits one
// tick per elapsed second and invokes settle exactly once when the countdown reaches zero.
// Cancel stops the countdown without settling.
type RoundScheduler struct {
	clock   Clock
	seconds int
	emit    func(domain.Event)
	settle  func()

	// mu orders tick emission against Cancel.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	fired  atomic.Bool
	start  atomic.Bool
}

func NewRoundScheduler(clock Clock, seconds int, emit func(domain.Event), settle func()) *RoundScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RoundScheduler{
		clock:   clock,
		seconds: seconds,
		emit:    emit,
		settle:  settle,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start publishes the question and begins ticking. It returns the question-start timestamp.
// Calling Start more than once has no effect beyond returning the current time.
func (r *RoundScheduler) Start(question domain.QuestionPayload) time.Time {
	startedAt := r.clock.Now()
	if !r.start.CompareAndSwap(false, true) {
		return startedAt
	}

	// Arm the ticker before announcing the question so no elapsed second goes unobserved.
	ticker := r.clock.NewTicker(time.Second)
	r.emit(domain.Event{Type: domain.EventNewQuestion, Payload: question})
	go r.run(ticker)
	return startedAt
}

func (r *RoundScheduler) run(ticker clockwork.Ticker) {
	defer close(r.done)
	defer ticker.Stop()

	remaining := r.seconds
	for remaining > 0 {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.Chan():
			remaining--
			if !r.tick(remaining) {
				return
			}
		}
	}

	if r.fired.CompareAndSwap(false, true) {
		r.settle()
	}
}

func (r *RoundScheduler) tick(remaining int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return false
	}
	r.emit(domain.Event{Type: domain.EventTimerTick, Payload: domain.TickPayload{Remaining: remaining}})
	return true
}

// Cancel stops the countdown. It is safe to call repeatedly and after the countdown finished;
// it never triggers settlement. It reports whether a pending settlement was prevented.
// No tick is emitted once Cancel has returned.
func (r *RoundScheduler) Cancel() bool {
	prevented := r.fired.CompareAndSwap(false, true)
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	if r.start.CompareAndSwap(false, true) {
		close(r.done)
	}
	return prevented
}

// Done is closed once the countdown goroutine has exited.
func (r *RoundScheduler) Done() <-chan struct{} {
	return r.done
}
