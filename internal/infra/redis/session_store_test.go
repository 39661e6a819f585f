package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"trivia-service/internal/app"
)

func TestSessionStoreReservesAndReleasesCodes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute, "instance-a")
	session := app.NewSession(app.SessionOptions{Code: "123456", HostID: "host", Clock: clockwork.NewFakeClock()})

	ok, err := store.Insert(context.Background(), "123456", session)
	if err != nil || !ok {
		t.Fatalf("expected insert, got ok=%v err=%v", ok, err)
	}
	if got, _ := mr.Get("trivia:room:123456"); got != "instance-a" {
		t.Fatalf("expected reservation owned by instance-a, got %q", got)
	}
	if ttl := mr.TTL("trivia:room:123456"); ttl != time.Minute {
		t.Fatalf("expected reservation ttl, got %v", ttl)
	}

	store.Delete("123456")
	if mr.Exists("trivia:room:123456") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("123456"); ok {
		t.Fatalf("expected session removed locally")
	}
}

func TestSessionStoreRejectsCodeHeldElsewhere(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	other := NewSessionStore(client, time.Minute, "instance-b")
	store := NewSessionStore(client, time.Minute, "instance-a")
	session := app.NewSession(app.SessionOptions{Code: "654321", HostID: "host", Clock: clockwork.NewFakeClock()})

	if ok, _ := other.Insert(context.Background(), "654321", session); !ok {
		t.Fatalf("expected first instance to reserve code")
	}
	ok, err := store.Insert(context.Background(), "654321", session)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ok {
		t.Fatalf("expected code held by another instance to be rejected")
	}
	if len(store.List()) != 0 {
		t.Fatalf("expected nothing stored locally")
	}
}
