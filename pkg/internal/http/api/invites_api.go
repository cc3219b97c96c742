package api

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listChannelInvites(c *fiber.Ctx) error {
	channelId, err := ensureChannelAdmin(c)
	if err != nil {
		return err
	}

	if invites, err := services.ListChannelInvite(c.UserContext(), channelId); err != nil {
		return serviceError(err)
	} else {
		return c.JSON(invites)
	}
}

func addChannelInvite(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	var data moderationTarget
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	applied, err := services.AddChannelInvite(c.UserContext(), exts.GetUserID(c), channelId, data.Target)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"applied": applied})
}

func removeChannelInvite(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}
	target, err := targetParam(c)
	if err != nil {
		return err
	}

	applied, err := services.RemoveChannelInvite(c.UserContext(), exts.GetUserID(c), channelId, target)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(fiber.Map{"applied": applied})
}
