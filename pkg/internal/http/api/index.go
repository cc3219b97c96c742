package api

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
)

var hub *gateway.Hub

func MapAPIs(app *fiber.App, baseURL string, gw *gateway.Hub) {
	hub = gw

	api := app.Group(baseURL, exts.AuthMiddleware).Name("API")
	{
		channels := api.Group("/channels").Name("Channels API")
		{
			channels.Get("/public", listPublicChannel)
			channels.Get("/me/available", listAvailableChannel)
			channels.Post("/", createChannel)

			channels.Get("/:channelId", getChannel)
			channels.Put("/:channelId", editChannel)
			channels.Delete("/:channelId", deleteChannel)
			channels.Get("/:channelId/me", getChannelIdentity)

			channels.Get("/:channelId/members", listChannelMembers)
			channels.Post("/:channelId/members/me", joinChannel)
			channels.Delete("/:channelId/members/me", leaveChannel)
			channels.Get("/:channelId/admins", listChannelAdmins)
			channels.Post("/:channelId/admins", promoteChannelAdmin)
			channels.Delete("/:channelId/admins/:target", demoteChannelAdmin)

			channels.Get("/:channelId/bans", listChannelBans)
			channels.Post("/:channelId/bans", banChannelMember)
			channels.Delete("/:channelId/bans/:target", unbanChannelMember)
			channels.Get("/:channelId/mutes", listChannelMutes)
			channels.Post("/:channelId/mutes", muteChannelMember)
			channels.Delete("/:channelId/mutes/:target", unmuteChannelMember)
			channels.Post("/:channelId/kicks", kickChannelMember)
			channels.Get("/:channelId/audit", listChannelAuditLog)

			channels.Get("/:channelId/invites", listChannelInvites)
			channels.Post("/:channelId/invites", addChannelInvite)
			channels.Delete("/:channelId/invites/:target", removeChannelInvite)
		}
	}
}
