package http

import (
	"net/http/httptest"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayEndpointGuards(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	viper.Set("security.jwt_secret", "test-secret")
	app := NewServer(gateway.NewHub(nil)).Fiber()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/ws", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := exts.IssueToken(1, time.Minute)
	require.NoError(t, err)
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/ws?tk="+token, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
