// Package webapi assembles the HTTP surface. Handlers live in sub-packages:
//   - auth:     registration, login, password change, logout
//   - account:  deposits, withdrawals, balances, histories
//   - transfer: internal and external transfers
package webapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gokcenbank/ledger/pkg/config"
	accountsvc "github.com/gokcenbank/ledger/pkg/service/account"
	authsvc "github.com/gokcenbank/ledger/pkg/service/auth"
	transfersvc "github.com/gokcenbank/ledger/pkg/service/transfer"
	accountweb "github.com/gokcenbank/ledger/webapi/account"
	authweb "github.com/gokcenbank/ledger/webapi/auth"
	"github.com/gokcenbank/ledger/webapi/common"
	transferweb "github.com/gokcenbank/ledger/webapi/transfer"

	_ "github.com/gokcenbank/ledger/docs"
)

// Services is everything the HTTP layer needs.
type Services struct {
	Auth     *authsvc.Service
	Account  *accountsvc.Service
	Transfer *transfersvc.Service
}

// SetupApp builds the Fiber app with all middleware and routes registered.
func SetupApp(svcs Services, cfg *config.AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.App.Name,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", nil, err.Error(), status)
		},
	})

	app.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		PersistAuthorization: true,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.MaxRequests,
		Expiration: cfg.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			// Prefer proxy headers so all clients behind one LB are not
			// throttled as a single caller.
			if forwardedFor := c.Get("X-Forwarded-For"); forwardedFor != "" {
				if commaIndex := strings.Index(forwardedFor, ","); commaIndex != -1 {
					return strings.TrimSpace(forwardedFor[:commaIndex])
				}
				return strings.TrimSpace(forwardedFor)
			}
			if realIP := c.Get("X-Real-IP"); realIP != "" {
				return realIP
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(c, "Too Many Requests",
				errors.New("rate limit exceeded"), fiber.StatusTooManyRequests)
		},
	}))
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Ledger API is running")
	})

	authweb.Routes(app, svcs.Auth, &cfg.Jwt)
	accountweb.Routes(app, svcs.Account, svcs.Auth, &cfg.Jwt)
	transferweb.Routes(app, svcs.Transfer, svcs.Auth, &cfg.Jwt)
	return app
}
