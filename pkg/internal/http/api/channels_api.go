package api

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listPublicChannel(c *fiber.Ctx) error {
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	channels, err := services.ListPublicChannel(c.UserContext(), exts.GetUserID(c), take, offset)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(channels)
}

func listAvailableChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	channels, err := services.ListAvailableChannel(c.UserContext(), exts.GetUserID(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(channels)
}

// getChannel shows public channels to anyone who is not banned, private ones only to members.
func getChannel(c *fiber.Ctx) error {
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	identity, err := services.GetChannelIdentity(c.UserContext(), channelId, exts.GetUserID(c))
	if err != nil {
		return serviceError(err)
	} else if identity.IsBanned {
		return fiber.NewError(fiber.StatusForbidden, "you are banned from this channel")
	}

	channel, err := services.GetChannel(c.UserContext(), channelId)
	if err != nil {
		return serviceError(err)
	} else if !channel.IsPublic && !identity.IsMember {
		return fiber.NewError(fiber.StatusNotFound, "channel was not found")
	}
	return c.JSON(channel)
}

func getChannelIdentity(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	identity, err := services.GetChannelIdentity(c.UserContext(), channelId, exts.GetUserID(c))
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(identity)
}

func createChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var data struct {
		Name     string  `json:"name" validate:"required,max=49"`
		IsPublic bool    `json:"is_public"`
		Password *string `json:"password" validate:"omitempty,max=72"`
		PhotoUrl *string `json:"photo_url" validate:"omitempty,max=49"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, err := services.NewChannel(c.UserContext(), exts.GetUserID(c), services.ChannelTemplate{
		Name:     data.Name,
		IsPublic: data.IsPublic,
		Password: data.Password,
		PhotoUrl: data.PhotoUrl,
	})
	if err != nil {
		return serviceError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(channel)
}

func editChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	var data services.ChannelPatch
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	channel, err := services.EditChannel(c.UserContext(), exts.GetUserID(c), channelId, data)
	if err != nil {
		return serviceError(err)
	}
	hub.AfterChannelUpdate(channel)
	return c.JSON(channel)
}

func deleteChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	if err := services.DeleteChannel(c.UserContext(), exts.GetUserID(c), channelId); err != nil {
		return serviceError(err)
	}
	hub.AfterChannelDelete(channelId)
	return c.SendStatus(fiber.StatusOK)
}
