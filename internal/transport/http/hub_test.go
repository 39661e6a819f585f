package http

import (
	"encoding/json"
	"testing"

	"trivia-service/internal/domain"
)

func TestHubRoutesByRoom(t *testing.T) {
	hub := NewHub()
	a := hub.register("a")
	b := hub.register("b")
	hub.Attach("111111", "a")
	hub.Attach("222222", "b")
	hub.Attach("111111", "ghost")

	hub.Broadcast("111111", domain.Event{Type: domain.EventTimerTick, Payload: domain.TickPayload{Remaining: 4}})

	if len(a.send) != 1 || len(b.send) != 0 {
		t.Fatalf("expected only a to receive, got a=%d b=%d", len(a.send), len(b.send))
	}
	var ev struct {
		Type string `json:"type"`
	}
	json.Unmarshal(<-a.send, &ev)
	if ev.Type != "timer_tick" {
		t.Fatalf("unexpected event %q", ev.Type)
	}
	if hub.Members("111111") != 1 {
		t.Fatalf("unknown connections must not be attached")
	}

	hub.Send("b", domain.Event{Type: domain.EventJoined})
	if len(b.send) != 1 {
		t.Fatalf("expected direct send to b")
	}

	hub.CloseRoom("111111")
	hub.Broadcast("111111", domain.Event{Type: domain.EventGameOver})
	if len(a.send) != 0 {
		t.Fatalf("closed room must not deliver")
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c := hub.register("slow")
	hub.Attach("111111", "slow")

	for i := 0; i < sendBuffer+10; i++ {
		hub.Broadcast("111111", domain.Event{Type: domain.EventTimerTick})
	}
	if len(c.send) != sendBuffer {
		t.Fatalf("expected queue capped at %d, got %d", sendBuffer, len(c.send))
	}

	hub.unregister("slow")
	hub.unregister("slow")
	if hub.Members("111111") != 0 {
		t.Fatalf("expected membership cleared on unregister")
	}
	for range c.send {
	}
}
