package gateway

import (
	"context"
	"fmt"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type commandRequest struct {
	ChannelID uint       `json:"channel_id" validate:"required"`
	Target    uint       `json:"target"`
	Password  *string    `json:"password"`
	Until     *time.Time `json:"until"`
	Content   string     `json:"content" validate:"max=4096"`
}

type moderationAction func(ctx context.Context, actor, channelId, target uint) (bool, error)

var moderationActions = map[string]moderationAction{
	models.CommandChannelBan:    services.BanChannelMember,
	models.CommandChannelUnban:  services.UnbanChannelMember,
	models.CommandChannelKick:   services.KickChannelMember,
	models.CommandChannelUnmute: services.UnmuteChannelMember,
	models.CommandAdminPromote:  services.PromoteChannelAdmin,
	models.CommandAdminDemote:   services.DemoteChannelAdmin,
}

var plainCommands = []string{
	models.CommandChannelSubscribe,
	models.CommandChannelJoin,
	models.CommandChannelLeave,
	models.CommandChannelMute,
	models.CommandMessageSend,
}

func knownCommand(action string) bool {
	_, ok := moderationActions[action]
	return ok || lo.Contains(plainCommands, action)
}

func failed(err error) *models.UnifiedCommand {
	return lo.ToPtr(models.UnifiedCommandFromError(err, services.ErrorKind(err)))
}

func invalid(format string, args ...any) *models.UnifiedCommand {
	return failed(fmt.Errorf("%w: %s", services.ErrValidation, fmt.Sprintf(format, args...)))
}

func applied(task models.UnifiedCommand, req commandRequest, ok bool) *models.UnifiedCommand {
	return &models.UnifiedCommand{
		Action:  task.Action,
		Payload: map[string]any{"channel_id": req.ChannelID, "target": req.Target, "applied": ok},
	}
}

// DealCommand runs one command sent by client and returns the reply, if any.
func (h *Hub) DealCommand(ctx context.Context, client *Client, task models.UnifiedCommand) *models.UnifiedCommand {
	if !knownCommand(task.Action) {
		return &models.UnifiedCommand{
			Action:  models.CommandError,
			Message: "command not found",
			Payload: map[string]any{"kind": services.ErrorKind(services.ErrNotFound)},
		}
	}

	var req commandRequest
	if err := models.FitStruct(task.Payload, &req); err != nil {
		return invalid("unable to parse payload: %v", err)
	} else if err := exts.ValidateStruct(req); err != nil {
		return invalid("%v", err)
	}

	user := client.UserID

	switch task.Action {
	case models.CommandChannelSubscribe:
		if _, err := services.GetAvailableChannel(ctx, req.ChannelID, user); err != nil {
			return failed(err)
		}
		h.Subscribe(req.ChannelID, client)
		return &models.UnifiedCommand{
			Action:  models.EventChannelSubscribed,
			Payload: map[string]any{"channel_id": req.ChannelID},
		}

	case models.CommandChannelJoin:
		if err := services.JoinChannel(ctx, user, req.ChannelID, req.Password); err != nil {
			return failed(err)
		}
		h.Subscribe(req.ChannelID, client)
		h.AfterJoin(req.ChannelID, user)
		return applied(task, req, true)

	case models.CommandChannelLeave:
		result, err := services.LeaveChannel(ctx, user, req.ChannelID)
		if err != nil {
			return failed(err)
		}
		h.AfterQuit(req.ChannelID, user, result)
		return &models.UnifiedCommand{
			Action:  task.Action,
			Payload: map[string]any{"channel_id": req.ChannelID, "succession": result},
		}

	case models.CommandChannelMute:
		if req.Target == 0 {
			return invalid("target is required")
		}
		ok, err := services.MuteChannelMember(ctx, user, req.ChannelID, req.Target, req.Until)
		if err != nil {
			return failed(err)
		} else if ok {
			h.AfterModeration(req.ChannelID, user, req.Target, task.Action)
		}
		return applied(task, req, ok)

	case models.CommandMessageSend:
		return h.sendMessage(ctx, user, req)
	}

	if req.Target == 0 {
		return invalid("target is required")
	}
	ok, err := moderationActions[task.Action](ctx, user, req.ChannelID, req.Target)
	if err != nil {
		return failed(err)
	} else if ok {
		h.AfterModeration(req.ChannelID, user, req.Target, task.Action)
	}
	return applied(task, req, ok)
}

// sendMessage relays a chat message to the room. Only members who are not muted may speak.
func (h *Hub) sendMessage(ctx context.Context, user uint, req commandRequest) *models.UnifiedCommand {
	if len(req.Content) == 0 {
		return invalid("content is required")
	}

	identity, err := services.GetChannelIdentity(ctx, req.ChannelID, user)
	if err != nil {
		return failed(err)
	} else if !identity.IsMember || identity.IsBanned {
		return failed(fmt.Errorf("%w: you are not a member of this channel", services.ErrAuthorization))
	} else if identity.MutedUntil != nil {
		return failed(fmt.Errorf("%w: you are muted until %s", services.ErrAuthorization, identity.MutedUntil.Format(time.RFC3339)))
	}

	h.Broadcast(req.ChannelID, models.UnifiedCommand{
		Action: models.EventMessageNew,
		Payload: map[string]any{
			"uuid":       uuid.NewString(),
			"channel_id": req.ChannelID,
			"sender_id":  user,
			"content":    req.Content,
			"created_at": time.Now(),
		},
	})
	return nil
}
