package api

import (
	"context"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

type moderationTarget struct {
	Target uint `json:"target" validate:"required"`
}

// moderateWith runs one moderation action for the caller and fans it out when applied.
func moderateWith(c *fiber.Ctx, action string, target uint, run func(ctx context.Context, actor, channelId, target uint) (bool, error)) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := exts.GetUserID(c)
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	applied, err := run(c.UserContext(), user, channelId, target)
	if err != nil {
		return serviceError(err)
	} else if applied {
		hub.AfterModeration(channelId, user, target, action)
	}
	return c.JSON(fiber.Map{"applied": applied})
}

func moderateBody(action string, run func(ctx context.Context, actor, channelId, target uint) (bool, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var data moderationTarget
		if err := exts.BindAndValidate(c, &data); err != nil {
			return err
		}
		return moderateWith(c, action, data.Target, run)
	}
}

func moderateParam(action string, run func(ctx context.Context, actor, channelId, target uint) (bool, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target, err := targetParam(c)
		if err != nil {
			return err
		}
		return moderateWith(c, action, target, run)
	}
}

var (
	banChannelMember    = moderateBody(models.CommandChannelBan, services.BanChannelMember)
	unbanChannelMember  = moderateParam(models.CommandChannelUnban, services.UnbanChannelMember)
	kickChannelMember   = moderateBody(models.CommandChannelKick, services.KickChannelMember)
	unmuteChannelMember = moderateParam(models.CommandChannelUnmute, services.UnmuteChannelMember)
	promoteChannelAdmin = moderateBody(models.CommandAdminPromote, services.PromoteChannelAdmin)
	demoteChannelAdmin  = moderateParam(models.CommandAdminDemote, services.DemoteChannelAdmin)
)

func muteChannelMember(c *fiber.Ctx) error {
	var data struct {
		Target uint       `json:"target" validate:"required"`
		Until  *time.Time `json:"until"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	return moderateWith(c, models.CommandChannelMute, data.Target, func(ctx context.Context, actor, channelId, target uint) (bool, error) {
		return services.MuteChannelMember(ctx, actor, channelId, target, data.Until)
	})
}

// ensureChannelAdmin loads the caller's identity and refuses anyone without moderation power.
func ensureChannelAdmin(c *fiber.Ctx) (uint, error) {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return 0, err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return 0, err
	}

	identity, err := services.GetChannelIdentity(c.UserContext(), channelId, exts.GetUserID(c))
	if err != nil {
		return 0, serviceError(err)
	} else if !identity.IsMember || !identity.IsAdmin {
		return 0, fiber.NewError(fiber.StatusForbidden, "you must be an administrator of this channel")
	}
	return channelId, nil
}

func listChannelBans(c *fiber.Ctx) error {
	channelId, err := ensureChannelAdmin(c)
	if err != nil {
		return err
	}

	if bans, err := services.ListChannelBan(c.UserContext(), channelId); err != nil {
		return serviceError(err)
	} else {
		return c.JSON(bans)
	}
}

func listChannelMutes(c *fiber.Ctx) error {
	channelId, err := ensureChannelAdmin(c)
	if err != nil {
		return err
	}

	if mutes, err := services.ListChannelMute(c.UserContext(), channelId); err != nil {
		return serviceError(err)
	} else {
		return c.JSON(mutes)
	}
}

func listChannelAuditLog(c *fiber.Ctx) error {
	channelId, err := ensureChannelAdmin(c)
	if err != nil {
		return err
	}
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	if logs, err := services.ListChannelAuditLog(c.UserContext(), channelId, take, offset); err != nil {
		return serviceError(err)
	} else {
		return c.JSON(logs)
	}
}
