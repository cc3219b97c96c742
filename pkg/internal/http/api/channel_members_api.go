package api

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func listChannelMembers(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}
	take := c.QueryInt("take", 20)
	offset := c.QueryInt("offset", 0)

	if _, err := services.GetAvailableChannel(c.UserContext(), channelId, exts.GetUserID(c)); err != nil {
		return serviceError(err)
	}

	count, err := services.CountChannelMember(c.UserContext(), channelId)
	if err != nil {
		return serviceError(err)
	}

	if members, err := services.ListChannelMember(c.UserContext(), channelId, take, offset); err != nil {
		return serviceError(err)
	} else {
		return c.JSON(fiber.Map{
			"count": count,
			"data":  members,
		})
	}
}

func listChannelAdmins(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	if _, err := services.GetAvailableChannel(c.UserContext(), channelId, exts.GetUserID(c)); err != nil {
		return serviceError(err)
	}

	if admins, err := services.ListChannelAdmin(c.UserContext(), channelId); err != nil {
		return serviceError(err)
	} else {
		return c.JSON(admins)
	}
}

func joinChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := exts.GetUserID(c)
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	var data struct {
		Password *string `json:"password"`
	}
	if len(c.Body()) > 0 {
		if err := exts.BindAndValidate(c, &data); err != nil {
			return err
		}
	}

	if err := services.JoinChannel(c.UserContext(), user, channelId, data.Password); err != nil {
		return serviceError(err)
	}
	hub.AfterJoin(channelId, user)
	return c.SendStatus(fiber.StatusOK)
}

func leaveChannel(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	user := exts.GetUserID(c)
	channelId, err := channelIdParam(c)
	if err != nil {
		return err
	}

	result, err := services.LeaveChannel(c.UserContext(), user, channelId)
	if err != nil {
		return serviceError(err)
	}
	hub.AfterQuit(channelId, user, result)
	return c.JSON(result)
}
