package gateway

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
)

// Fan-out of channel state changes, shared by the websocket commands and the REST api.

func (h *Hub) AfterJoin(channelId uint, userId uint) {
	h.Broadcast(channelId, models.UnifiedCommand{
		Action:  models.EventMemberJoin,
		Payload: map[string]any{"channel_id": channelId, "account_id": userId},
	})
}

func (h *Hub) AfterQuit(channelId uint, userId uint, result services.Succession) {
	h.EvictUser(channelId, userId)

	if result.ChannelDeleted {
		h.CloseRoom(channelId, models.UnifiedCommand{
			Action:  models.EventChannelDelete,
			Payload: map[string]any{"channel_id": channelId},
		})
		return
	}

	h.Broadcast(channelId, models.UnifiedCommand{
		Action:  models.EventMemberLeave,
		Payload: map[string]any{"channel_id": channelId, "account_id": userId},
	})
	if result.NewOwner != nil {
		h.Broadcast(channelId, models.UnifiedCommand{
			Action: models.EventOwnerChange,
			Payload: map[string]any{
				"channel_id":    channelId,
				"owner_id":      *result.NewOwner,
				"granted_admin": result.GrantedAdmin,
			},
		})
	}
}

// AfterModeration announces an applied moderation action to the room.
// Banned or kicked users lose their room subscriptions and get told why.
func (h *Hub) AfterModeration(channelId uint, actor uint, target uint, action string) {
	payload := map[string]any{"channel_id": channelId, "actor_id": actor, "account_id": target}

	switch action {
	case models.CommandChannelBan, models.CommandChannelKick:
		h.EvictUser(channelId, target)
		h.PushUser(target, models.UnifiedCommand{
			Action:  models.EventMemberRemoved,
			Payload: map[string]any{"channel_id": channelId, "reason": action},
		})
	}

	h.Broadcast(channelId, models.UnifiedCommand{Action: action, Payload: payload})
}

func (h *Hub) AfterChannelUpdate(channel models.Channel) {
	h.Broadcast(channel.ID, models.UnifiedCommand{
		Action:  models.EventChannelUpdate,
		Payload: map[string]any{"channel": channel},
	})
}

func (h *Hub) AfterChannelDelete(channelId uint) {
	h.CloseRoom(channelId, models.UnifiedCommand{
		Action:  models.EventChannelDelete,
		Payload: map[string]any{"channel_id": channelId},
	})
}
