package exts

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

var errInvalidToken = errors.New("invalid token")

func secret() []byte {
	return []byte(viper.GetString("security.jwt_secret"))
}

// IssueToken signs a token whose subject is the user id.
func IssueToken(user uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

func ParseToken(raw string) (uint, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return secret(), nil
	})
	if err != nil {
		return 0, err
	} else if !token.Valid {
		return 0, errInvalidToken
	}

	user, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || user == 0 {
		return 0, errInvalidToken
	}
	return uint(user), nil
}

// AuthMiddleware resolves the caller from a bearer token or the tk query.
// Requests without a token pass through anonymously.
func AuthMiddleware(c *fiber.Ctx) error {
	raw := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	if len(raw) == 0 {
		raw = c.Query("tk")
	}
	if len(raw) == 0 {
		return c.Next()
	}

	user, err := ParseToken(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	c.Locals("user", user)
	return c.Next()
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(uint); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "you must sign in first")
	}
	return nil
}

func GetUserID(c *fiber.Ctx) uint {
	user, _ := c.Locals("user").(uint)
	return user
}
