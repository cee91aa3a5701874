package common

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/service/auth"
	"github.com/golang-jwt/jwt/v5"
)

// SessionResolver resolves a verified JWT into its live server-side session.
type SessionResolver interface {
	SessionFromToken(token *jwt.Token) (*auth.Session, error)
}

// CurrentSession pulls the JWT the middleware stored in the request context
// and resolves it. Logged-out and expired sessions fail here even when the
// token signature is still valid.
func CurrentSession(c *fiber.Ctx, resolver SessionResolver) (*auth.Session, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, ledger.ErrSessionInvalid
	}
	return resolver.SessionFromToken(token)
}
