package exts

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	viper.Set("security.jwt_secret", "test-secret")

	token, err := IssueToken(42, time.Hour)
	require.NoError(t, err)

	user, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), user)

	expired, err := IssueToken(42, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	viper.Set("security.jwt_secret", "another-secret")
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("security.jwt_secret", "test-secret")

	app := fiber.New()
	app.Get("/whoami", AuthMiddleware, func(c *fiber.Ctx) error {
		if err := EnsureAuthenticated(c); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user": GetUserID(c)})
	})

	token, err := IssueToken(7, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"Anonymous", "", "", fiber.StatusUnauthorized},
		{"Bearer", "Bearer " + token, "", fiber.StatusOK},
		{"Query", "", "?tk=" + token, fiber.StatusOK},
		{"Garbage", "Bearer nope", "", fiber.StatusUnauthorized},
	}
	for _, item := range cases {
		t.Run(item.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/whoami"+item.query, nil)
			if len(item.header) > 0 {
				req.Header.Set(fiber.HeaderAuthorization, item.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, item.status, resp.StatusCode)
		})
	}
}
