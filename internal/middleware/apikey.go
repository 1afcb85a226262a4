package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyHeader = "X-API-Key"

// APIKey accepts requests whose X-API-Key (or bearer token) matches the bcrypt
// hash. An empty hash disables the check.
func APIKey(hash string) fiber.Handler {
	if hash == "" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	digest := []byte(hash)
	return func(c *fiber.Ctx) error {
		key := c.Get(apiKeyHeader)
		if key == "" {
			authz := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				key = strings.TrimSpace(authz[len("Bearer "):])
			}
		}
		if key == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing api key")
		}
		if err := bcrypt.CompareHashAndPassword(digest, []byte(key)); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid api key")
		}
		return c.Next()
	}
}
