package gateway

import (
	"context"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const relayChannel = "channels:gateway"

const (
	relayBroadcast = "broadcast"
	relayPushUser  = "push"
	relayEvict     = "evict"
	relayCloseRoom = "close"
)

// envelope carries one fan-out between nodes.
type envelope struct {
	Node      string                `json:"node"`
	Kind      string                `json:"kind"`
	ChannelID uint                  `json:"channel_id,omitempty"`
	UserID    uint                  `json:"user_id,omitempty"`
	Command   models.UnifiedCommand `json:"command"`
}

func (h *Hub) publish(msg envelope) {
	if h.redis == nil {
		return
	}

	msg.Node = h.node
	payload, err := jsoniter.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("Unable to encode gateway relay envelope.")
		return
	}
	if err := h.redis.Publish(context.Background(), relayChannel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("kind", msg.Kind).Msg("Unable to relay gateway fan-out.")
	}
}

// StartRelay subscribes to the fan-out of other nodes and replays it locally
// until ctx is done. It returns once the subscription is confirmed.
func (h *Hub) StartRelay(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}

	pubsub := h.redis.Subscribe(ctx, relayChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}

	go func() {
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.replay(msg.Payload)
			}
		}
	}()

	log.Info().Str("node", h.node).Msg("Gateway relay is listening...")
	return nil
}

func (h *Hub) replay(payload string) {
	var msg envelope
	if err := jsoniter.UnmarshalFromString(payload, &msg); err != nil {
		log.Warn().Err(err).Msg("Dropped malformed gateway relay envelope.")
		return
	} else if msg.Node == h.node {
		return
	}

	switch msg.Kind {
	case relayBroadcast:
		h.broadcastLocal(msg.ChannelID, msg.Command)
	case relayPushUser:
		h.pushUserLocal(msg.UserID, msg.Command)
	case relayEvict:
		h.evictLocal(msg.ChannelID, msg.UserID)
	case relayCloseRoom:
		h.closeRoomLocal(msg.ChannelID, msg.Command)
	}
}
