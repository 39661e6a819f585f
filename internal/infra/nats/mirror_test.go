package nats

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"trivia-service/internal/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return c.err
}

type countingPublisher struct {
	broadcasts int
	sends      int
}

func (p *countingPublisher) Attach(string, string)          {}
func (p *countingPublisher) Detach(string, string)          {}
func (p *countingPublisher) Broadcast(string, domain.Event) { p.broadcasts++ }
func (p *countingPublisher) Send(string, domain.Event)      { p.sends++ }
func (p *countingPublisher) CloseRoom(string)               {}

func TestMirrorPublishesBroadcasts(t *testing.T) {
	inner := &countingPublisher{}
	conn := &fakeConn{}
	m := NewMirror(inner, conn, "quiz")

	m.Broadcast("123456", domain.Event{Type: domain.EventTimerTick, Payload: domain.TickPayload{Remaining: 3}})
	m.Send("conn-1", domain.Event{Type: domain.EventJoined})

	if inner.broadcasts != 1 || inner.sends != 1 {
		t.Fatalf("expected inner publisher to see both events, got %+v", inner)
	}
	if len(conn.subjects) != 1 || conn.subjects[0] != "quiz.123456.timer_tick" {
		t.Fatalf("expected only the broadcast mirrored, got %v", conn.subjects)
	}

	var ev struct {
		Type    string `json:"type"`
		Payload struct {
			Remaining int `json:"remaining"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(conn.payloads[0], &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "timer_tick" || ev.Payload.Remaining != 3 {
		t.Fatalf("unexpected mirrored payload %s", conn.payloads[0])
	}
}

func TestMirrorSurvivesPublishFailure(t *testing.T) {
	inner := &countingPublisher{}
	m := NewMirror(inner, &fakeConn{err: errors.New("nats down")}, "")

	m.Broadcast("123456", domain.Event{Type: domain.EventGameOver})

	if inner.broadcasts != 1 {
		t.Fatalf("room delivery must not depend on NATS")
	}
	if got := m.Subject("123456", domain.EventGameOver); got != "trivia.123456.game_over" {
		t.Fatalf("unexpected default subject %q", got)
	}
}
