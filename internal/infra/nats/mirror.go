package nats

import (
	"encoding/json"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// Conn is the subset of *nats.Conn the mirror needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Mirror decorates a Publisher so every room broadcast is also published to NATS as
// <prefix>.<room>.<event>. Delivery to the room never depends on NATS.
type Mirror struct {
	app.Publisher
	conn   Conn
	prefix string
}

func NewMirror(inner app.Publisher, conn Conn, prefix string) *Mirror {
	if prefix == "" {
		prefix = "trivia"
	}
	return &Mirror{Publisher: inner, conn: conn, prefix: prefix}
}

func (m *Mirror) Broadcast(roomCode string, event domain.Event) {
	m.Publisher.Broadcast(roomCode, event)

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("room", roomCode).Str("event", string(event.Type)).Msg("failed to encode mirrored event")
		return
	}
	if err := m.conn.Publish(m.Subject(roomCode, event.Type), data); err != nil {
		log.Warn().Err(err).Str("room", roomCode).Str("event", string(event.Type)).Msg("failed to mirror event to NATS")
	}
}

// Subject returns the NATS subject for a room event.
func (m *Mirror) Subject(roomCode string, typ domain.EventType) string {
	return fmt.Sprintf("%s.%s.%s", m.prefix, roomCode, typ)
}

// Connect dials NATS with reconnects and zerolog connection handlers.
func Connect(url string) (*natsgo.Conn, error) {
	opts := []natsgo.Option{
		natsgo.Name("trivia-service"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ErrorHandler(func(nc *natsgo.Conn, sub *natsgo.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := natsgo.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
