package api

import (
	"git.solsynth.dev/hypernet/channels/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

var statusOfKind = map[string]int{
	"not_found":     fiber.StatusNotFound,
	"validation":    fiber.StatusBadRequest,
	"conflict":      fiber.StatusConflict,
	"authorization": fiber.StatusForbidden,
	"storage":       fiber.StatusInternalServerError,
}

func serviceError(err error) error {
	status := statusOfKind[services.ErrorKind(err)]
	if status == fiber.StatusInternalServerError {
		log.Error().Err(err).Msg("An error occurred when serving request...")
	}
	return fiber.NewError(status, err.Error())
}

func channelIdParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("channelId", 0)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid channel id")
	}
	return uint(id), nil
}

func targetParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("target", 0)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid target")
	}
	return uint(id), nil
}
