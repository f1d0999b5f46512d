package ws

import (
	"context"
	"encoding/json"

	"github.com/tagforge/tagsync/common/logger"
	redisc "github.com/tagforge/tagsync/common/redis"
)

// broadcastEnvelope wraps a tags_updated payload for pub/sub between
// instances. Origin suppresses re-delivery on the publishing instance.
type broadcastEnvelope struct {
	Origin    string          `json:"origin"`
	ProjectID string          `json:"projectId"`
	Payload   json.RawMessage `json:"payload"`
}

// Bridge listens to the broadcast channel on Redis and forwards
// updates published by sibling instances into the local hub
type Bridge struct {
	hub     *Hub
	redis   *redisc.Client
	channel string
	origin  string
	log     *logger.Logger
}

// NewBridge creates a new Bridge instance
func NewBridge(hub *Hub, client *redisc.Client, channel, origin string, log *logger.Logger) *Bridge {
	return &Bridge{
		hub:     hub,
		redis:   client,
		channel: channel,
		origin:  origin,
		log:     log,
	}
}

// Run blocks on the subscription until ctx is cancelled
func (b *Bridge) Run(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	b.log.Info("broadcast bridge started", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("broadcast bridge stopping")
			return

		case msg := <-ch:
			if msg == nil {
				continue
			}

			var env broadcastEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.log.Warn("invalid broadcast envelope", "error", err)
				continue
			}
			if env.Origin == b.origin {
				// Our own publish; local subscribers already got it
				continue
			}

			b.hub.Broadcast(env.ProjectID, env.Payload)
		}
	}
}
