package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var errMalformed = errors.New("malformed message")

type WSHandler struct {
	registry *app.Registry
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *app.Registry, hub *Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomCode string `json:"roomCode"`
}

type joinPayload struct {
	RoomCode string `json:"roomCode"`
	Name     string `json:"name"`
}

type answerPayload struct {
	RoomCode    string `json:"roomCode"`
	AnswerIndex *int   `json:"answerIndex"`
	Skip        bool   `json:"skip"`
}

// choice maps the wire answer to a Choice; an index of -1 is the legacy skip marker.
func (p answerPayload) choice() (domain.Choice, error) {
	if p.Skip {
		return domain.Skip(), nil
	}
	if p.AnswerIndex == nil {
		return domain.Choice{}, domain.ErrInvalidOption
	}
	if *p.AnswerIndex == -1 {
		return domain.Skip(), nil
	}
	return domain.Pick(*p.AnswerIndex), nil
}

// ServeWS upgrades HTTP requests to websockets. Each connection gets a fresh ID that serves as
// the host or player identity for as long as the socket lives.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	id := uuid.NewString()
	c := h.hub.register(id)
	log.Info().Str("conn", id).Str("remote", r.RemoteAddr).Msg("client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(conn, c)
	}()

	ctx := context.WithoutCancel(r.Context())
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", id).Msg("ws read error")
			}
			break
		}
		h.dispatch(ctx, id, inbound)
	}

	h.registry.OnDisconnect(id)
	h.hub.unregister(id)
	<-writerDone
	_ = conn.Close()
	log.Info().Str("conn", id).Msg("client disconnected")
}

func (h *WSHandler) dispatch(ctx context.Context, connID string, msg inboundMessage) {
	var err error
	switch msg.Type {
	case "host_create_game":
		_, err = h.registry.CreateSession(ctx, connID)
	case "host_start_game":
		var p roomPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = h.registry.Start(ctx, p.RoomCode, connID)
		}
	case "host_next_question":
		var p roomPayload
		if err = decode(msg.Payload, &p); err == nil {
			err = h.registry.NextQuestion(ctx, p.RoomCode, connID)
		}
	case "player_join":
		var p joinPayload
		if err = decode(msg.Payload, &p); err == nil {
			_, err = h.registry.Join(ctx, p.RoomCode, connID, p.Name)
		}
	case "player_submit_answer":
		var p answerPayload
		if err = decode(msg.Payload, &p); err == nil {
			var choice domain.Choice
			if choice, err = p.choice(); err == nil {
				err = h.registry.SubmitAnswer(ctx, p.RoomCode, connID, choice)
			}
		}
	default:
		err = errors.New("unsupported message type")
	}
	if err == nil {
		return
	}

	if domain.Silent(err) {
		log.Debug().Err(err).Str("conn", connID).Str("type", msg.Type).Msg("request ignored")
		return
	}
	log.Debug().Err(err).Str("conn", connID).Str("type", msg.Type).Msg("request rejected")
	h.hub.Send(connID, domain.NewErrorEvent(err))
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errMalformed
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errMalformed
	}
	return nil
}

// writePump is the only writer on conn. It drains the client's queue and keeps the socket alive
// with pings until the queue is closed.
func writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("conn", c.id).Msg("ws write error")
				// Unblock the reader so the connection is torn down.
				_ = conn.Close()
				drain(c.send)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				drain(c.send)
				return
			}
		}
	}
}

func drain(send <-chan []byte) {
	for range send {
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
