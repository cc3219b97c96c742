package api

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/database/dbtest"
	"git.solsynth.dev/hypernet/channels/pkg/internal/gateway"
	"git.solsynth.dev/hypernet/channels/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.Disabled)
	viper.Set("security.jwt_secret", "test-secret")
	dbtest.Use(t)

	app := fiber.New(fiber.Config{
		JSONEncoder: jsoniter.ConfigCompatibleWithStandardLibrary.Marshal,
		JSONDecoder: jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal,
	})
	MapAPIs(app, "/api", gateway.NewHub(nil))
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, user uint, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := jsoniter.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if user > 0 {
		token, err := exts.IssueToken(user, time.Hour)
		require.NoError(t, err)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, jsoniter.Unmarshal(raw, &out), string(raw))
	return out
}

func TestChannelLifecycle(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, fiber.MethodPost, "/api/channels", 0, fiber.Map{"name": "lobby", "is_public": true})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw := call(t, app, fiber.MethodPost, "/api/channels", 1, fiber.Map{"name": "lobby", "is_public": true})
	require.Equal(t, fiber.StatusCreated, status, string(raw))
	channel := decode[models.Channel](t, raw)
	path := "/api/channels/" + itoa(channel.ID)

	status, _ = call(t, app, fiber.MethodPost, "/api/channels", 1, fiber.Map{"name": "lobby", "is_public": true})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = call(t, app, fiber.MethodGet, path, 2, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = call(t, app, fiber.MethodPost, path+"/members/me", 2, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, raw = call(t, app, fiber.MethodGet, path+"/members", 2, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, decode[map[string]any](t, raw)["count"])

	status, raw = call(t, app, fiber.MethodPost, path+"/bans", 1, fiber.Map{"target": 2})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	assert.Equal(t, true, decode[map[string]any](t, raw)["applied"])

	status, _ = call(t, app, fiber.MethodGet, path, 2, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, fiber.MethodPost, path+"/members/me", 2, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, raw = call(t, app, fiber.MethodDelete, path+"/members/me", 1, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, decode[map[string]any](t, raw)["channel_deleted"])

	status, _ = call(t, app, fiber.MethodGet, path, 1, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestChannelEditing(t *testing.T) {
	app := newTestApp(t)

	status, raw := call(t, app, fiber.MethodPost, "/api/channels", 1, fiber.Map{"name": "devs", "is_public": true})
	require.Equal(t, fiber.StatusCreated, status)
	path := "/api/channels/" + itoa(decode[models.Channel](t, raw).ID)
	call(t, app, fiber.MethodPost, path+"/members/me", 2, nil)

	status, _ = call(t, app, fiber.MethodPut, path, 2, fiber.Map{"name": "mine"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = call(t, app, fiber.MethodPut, path, 1, fiber.Map{"is_public": false, "password": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, raw = call(t, app, fiber.MethodPut, path, 1, fiber.Map{"name": "builders", "password": "secret"})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	updated := decode[map[string]any](t, raw)
	assert.Equal(t, "builders", updated["name"])
	assert.Equal(t, true, updated["is_protected"])
	assert.NotContains(t, updated, "password")

	status, _ = call(t, app, fiber.MethodPut, "/api/channels/abc", 1, fiber.Map{"name": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = call(t, app, fiber.MethodDelete, path, 2, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = call(t, app, fiber.MethodDelete, path, 1, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAdminOnlyListings(t *testing.T) {
	app := newTestApp(t)

	status, raw := call(t, app, fiber.MethodPost, "/api/channels", 1, fiber.Map{"name": "ops", "is_public": true})
	require.Equal(t, fiber.StatusCreated, status)
	path := "/api/channels/" + itoa(decode[models.Channel](t, raw).ID)
	call(t, app, fiber.MethodPost, path+"/members/me", 2, nil)

	for _, route := range []string{"/bans", "/mutes", "/audit", "/invites"} {
		status, _ = call(t, app, fiber.MethodGet, path+route, 2, nil)
		assert.Equal(t, fiber.StatusForbidden, status, route)

		status, _ = call(t, app, fiber.MethodGet, path+route, 1, nil)
		assert.Equal(t, fiber.StatusOK, status, route)
	}

	status, raw = call(t, app, fiber.MethodPost, path+"/mutes", 1, fiber.Map{"target": 2})
	require.Equal(t, fiber.StatusOK, status, string(raw))
	status, raw = call(t, app, fiber.MethodGet, path+"/mutes", 1, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, decode[[]models.ChannelMute](t, raw), 1)

	status, raw = call(t, app, fiber.MethodDelete, path+"/mutes/2", 1, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, decode[map[string]any](t, raw)["applied"])

	status, raw = call(t, app, fiber.MethodPost, path+"/invites", 1, fiber.Map{"target": 3})
	assert.Equal(t, fiber.StatusForbidden, status, string(raw))
}
