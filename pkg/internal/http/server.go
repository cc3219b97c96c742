package http

import (
	"context"
	"strings"

	"git.solsynth.dev/hypernet/channels/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/api"
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/idempotency"
	"github.com/gofiber/fiber/v2/middleware/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type App struct {
	app *fiber.App
}

func NewServer(hub *gateway.Hub) *App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnableIPValidation:    true,
		ServerHeader:          "HyperNet.Channels",
		AppName:               "HyperNet.Channels",
		ProxyHeader:           fiber.HeaderXForwardedFor,
		JSONEncoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder:           jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
		BodyLimit:             1 * 1024 * 1024,
		EnablePrintRoutes:     viper.GetBool("debug.print_routes"),
	})

	app.Use(idempotency.New())
	app.Use(cors.New(cors.Config{
		AllowCredentials: true,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodHead,
			fiber.MethodOptions,
			fiber.MethodPut,
			fiber.MethodDelete,
			fiber.MethodPatch,
		}, ","),
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
	}))

	app.Use(logger.New(logger.Config{
		Format: "${status} | ${latency} | ${method} ${path}\n",
		Output: log.Logger,
	}))

	app.Get("/api/ws", exts.AuthMiddleware, gatewayGuard, websocket.New(func(c *websocket.Conn) {
		messageGateway(hub, c)
	}))

	api.MapAPIs(app, "/api", hub)

	return &App{app}
}

func gatewayGuard(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	} else if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

func messageGateway(hub *gateway.Hub, c *websocket.Conn) {
	user := c.Locals("user").(uint)

	// Push connection
	client := hub.Register(user, c)
	defer hub.Unregister(client)

	// Event loop
	for {
		_, packet, err := c.ReadMessage()
		if err != nil {
			break
		}

		task, err := models.UnmarshalUnifiedCommand(packet)
		if err != nil {
			_ = client.Push(models.UnifiedCommand{
				Action:  models.CommandError,
				Message: "unable to unmarshal your command, requires json request",
				Payload: map[string]any{"kind": "validation"},
			})
			continue
		}

		if message := hub.DealCommand(context.Background(), client, task); message != nil {
			if err := client.Push(*message); err != nil {
				break
			}
		}
	}
}

func (v *App) Listen() {
	if err := v.app.Listen(viper.GetString("bind")); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when starting server...")
	}
}

func (v *App) Shutdown() error {
	return v.app.Shutdown()
}

// Fiber exposes the underlying app for in-process requests.
func (v *App) Fiber() *fiber.App {
	return v.app
}
