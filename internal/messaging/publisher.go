package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/timvisee/merge-mania/internal/broadcast"
)

// GameSubject carries messages meant for every user.
const GameSubject = "game"

// UserSubject returns the subject a user's messages are published on.
func UserSubject(userID uint32) string {
	return fmt.Sprintf("user-%d", userID)
}

// NatsPublisher publishes broadcast messages as JSON to NATS subjects.
type NatsPublisher struct {
	server *NatsServer
}

// NewNatsPublisher wraps a NatsServer for per-user message delivery.
func NewNatsPublisher(server *NatsServer) *NatsPublisher {
	return &NatsPublisher{server: server}
}

func (p *NatsPublisher) Publish(userID uint32, msg broadcast.Message) error {
	return p.send(UserSubject(userID), msg)
}

func (p *NatsPublisher) PublishAll(msg broadcast.Message) error {
	return p.send(GameSubject, msg)
}

func (p *NatsPublisher) send(subject string, msg broadcast.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling %s message: %w", msg.Kind, err)
	}
	return p.server.Publish(subject, data)
}
