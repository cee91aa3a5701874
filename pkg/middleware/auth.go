// Package middleware provides the JWT guard for protected routes.
package middleware

import (
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/webapi/common"
)

// JwtProtected verifies the bearer token and stores the parsed *jwt.Token in
// c.Locals("user") for the handler to resolve into a session.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.Secret)},
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return common.ProblemDetailsJSON(c, "Missing or malformed JWT", err, fiber.StatusBadRequest)
	}
	return common.ProblemDetailsJSON(c, "Invalid or expired JWT", err, fiber.StatusUnauthorized)
}
