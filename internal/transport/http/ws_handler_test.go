package http

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
)

type testServer struct {
	server   *httptest.Server
	registry *app.Registry
	hub      *Hub
	clock    *clockwork.FakeClock
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	clock := clockwork.NewFakeClock()
	hub := NewHub()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute)
	registry := app.NewRegistry(memory.NewSessionStore(), questions, hub,
		app.WithClock(clock),
		app.WithSettings(app.Settings{QuestionSeconds: 2}),
	)
	server := httptest.NewServer(NewRouter(registry, hub, opts))
	t.Cleanup(server.Close)
	return &testServer{server: server, registry: registry, hub: hub, clock: clock}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// expect reads until an event of the given type arrives, skipping anything else.
func expect(t *testing.T, conn *websocket.Conn, typ string, into any) {
	t.Helper()
	for {
		var ev wireEvent
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if ev.Type != typ {
			continue
		}
		if into != nil {
			if err := json.Unmarshal(ev.Payload, into); err != nil {
				t.Fatalf("decode %s: %v", typ, err)
			}
		}
		return
	}
}

// roundTrip sends an unsupported message so every earlier message from conn is known to be handled.
func roundTrip(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, "ping_server", nil)
	var e domain.ErrorPayload
	expect(t, conn, "error_msg", &e)
	if e.Message != "unsupported message type" {
		t.Fatalf("unexpected sync reply %+v", e)
	}
}

func createRoom(t *testing.T, host *websocket.Conn) string {
	t.Helper()
	send(t, host, "host_create_game", nil)
	var created domain.GameCreatedPayload
	expect(t, host, "game_created", &created)
	if len(created.RoomCode) != 6 {
		t.Fatalf("expected six digit room code, got %q", created.RoomCode)
	}
	return created.RoomCode
}

func TestWebSocketGameFlow(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	host := s.dial(t)
	player := s.dial(t)

	code := createRoom(t, host)

	send(t, player, "player_join", map[string]any{"roomCode": code, "name": "Alice"})
	var joined domain.JoinedPayload
	expect(t, player, "player_joined_success", &joined)
	if joined.RoomCode != code || joined.Name != "Alice" {
		t.Fatalf("unexpected join payload %+v", joined)
	}
	var players []domain.Player
	expect(t, host, "update_players", &players)
	if len(players) != 1 || players[0].Name != "Alice" {
		t.Fatalf("expected host to see Alice, got %+v", players)
	}

	send(t, host, "host_start_game", map[string]any{"roomCode": code})
	var q struct {
		Text    string   `json:"text"`
		Options []string `json:"options"`
		Correct *int     `json:"correct"`
	}
	expect(t, player, "new_question", &q)
	if q.Text == "" || len(q.Options) != 3 || q.Correct != nil {
		t.Fatalf("unexpected question payload %+v", q)
	}

	send(t, player, "player_submit_answer", map[string]any{"roomCode": code, "answerIndex": 1})
	roundTrip(t, player)

	for want := 1; want >= 0; want-- {
		s.clock.Advance(time.Second)
		var tick domain.TickPayload
		expect(t, player, "timer_tick", &tick)
		if tick.Remaining != want {
			t.Fatalf("expected %d remaining, got %d", want, tick.Remaining)
		}
	}

	var result domain.RoundResult
	expect(t, player, "round_result", &result)
	if result.CorrectIndex != 1 || len(result.PlayerResults) != 1 {
		t.Fatalf("unexpected round result %+v", result)
	}
	if pr := result.PlayerResults[0]; !pr.IsCorrect || pr.Score != 15 || pr.SpeedBonus != 10 {
		t.Fatalf("expected fastest correct answer, got %+v", pr)
	}

	send(t, host, "host_next_question", map[string]any{"roomCode": code})
	var over domain.GameOverPayload
	expect(t, player, "game_over", &over)
	if len(over.Players) != 1 || over.Players[0].Score != 15 {
		t.Fatalf("unexpected standings %+v", over.Players)
	}
}

func TestWebSocketReportsProtocolErrors(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	host := s.dial(t)
	player := s.dial(t)
	code := createRoom(t, host)

	send(t, player, "player_join", map[string]any{"roomCode": "000000", "name": "Bob"})
	var e domain.ErrorPayload
	expect(t, player, "error_msg", &e)
	if e.Code != "invalid-room" {
		t.Fatalf("expected invalid-room, got %+v", e)
	}

	send(t, player, "player_join", map[string]any{"roomCode": code, "name": "Bob"})
	expect(t, player, "player_joined_success", nil)

	other := s.dial(t)
	send(t, other, "player_join", map[string]any{"roomCode": code, "name": "Bob"})
	expect(t, other, "error_msg", &e)
	if e.Code != "name-taken" {
		t.Fatalf("expected name-taken, got %+v", e)
	}

	// A player acting as host is ignored without a reply.
	send(t, player, "host_start_game", map[string]any{"roomCode": code})
	roundTrip(t, player)
	session, _ := s.registry.Lookup(code)
	if session.Status() != domain.StatusLobby {
		t.Fatalf("expected room still in lobby, got %s", session.Status())
	}

	send(t, player, "player_join", "not-an-object")
	expect(t, player, "error_msg", &e)
	if e.Message != errMalformed.Error() {
		t.Fatalf("expected malformed error, got %+v", e)
	}
}

func TestWebSocketHostDisconnectEndsGame(t *testing.T) {
	s := newTestServer(t, RouterOptions{})
	host := s.dial(t)
	player := s.dial(t)
	code := createRoom(t, host)

	send(t, player, "player_join", map[string]any{"roomCode": code, "name": "Alice"})
	expect(t, player, "player_joined_success", nil)

	host.Close()

	var ended domain.GameEndedPayload
	expect(t, player, "game_ended", &ended)
	if ended.Reason != "Host disconnected" {
		t.Fatalf("unexpected reason %q", ended.Reason)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := s.registry.Lookup(code); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected room removed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAnswerPayloadChoice(t *testing.T) {
	idx := func(i int) *int { return &i }

	cases := []struct {
		name    string
		payload answerPayload
		skip    bool
		option  int
		wantErr bool
	}{
		{"pick", answerPayload{AnswerIndex: idx(2)}, false, 2, false},
		{"legacy skip", answerPayload{AnswerIndex: idx(-1)}, true, 0, false},
		{"explicit skip", answerPayload{Skip: true, AnswerIndex: idx(1)}, true, 0, false},
		{"missing", answerPayload{}, false, 0, true},
	}
	for _, tc := range cases {
		choice, err := tc.payload.choice()
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.wantErr {
			continue
		}
		if choice.Skipped() != tc.skip {
			t.Fatalf("%s: expected skip=%v, got %v", tc.name, tc.skip, choice)
		}
		if opt, ok := choice.Option(); ok && opt != tc.option {
			t.Fatalf("%s: expected option %d, got %d", tc.name, tc.option, opt)
		}
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: 1, Text: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Correct: 1},
	}
}
