// Package auth exposes registration, login, password change and logout over
// HTTP.
package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/middleware"
	authsvc "github.com/gokcenbank/ledger/pkg/service/auth"
	"github.com/gokcenbank/ledger/webapi/common"
)

// Routes registers the authentication endpoints.
func Routes(app *fiber.App, svc *authsvc.Service, cfg *config.Jwt) {
	app.Post("/auth/register", Register(svc))
	app.Post("/auth/login", Login(svc))
	app.Post("/auth/change-password", middleware.JwtProtected(cfg), ChangePassword(svc))
	app.Post("/auth/logout", middleware.JwtProtected(cfg), Logout(svc))
}

// Register creates a new user with the two default accounts.
// @Summary Register a new user
// @Description Creates a user with a Checking and a Savings account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Router /auth/register [post]
func Register(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterRequest](c)
		if input == nil {
			return err
		}
		if err := svc.Register(c.Context(), input.Username, input.Password,
			input.SecurityQuestion, input.SecurityAnswer); err != nil {
			return common.ProblemDetailsJSON(c, "Registration failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User registered",
			fiber.Map{"username": input.Username})
	}
}

// Login authenticates and returns a bearer token.
// @Summary User login
// @Description Authenticate with username and password, returns a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /auth/login [post]
func Login(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginRequest](c)
		if input == nil {
			return err
		}
		sess, err := svc.Authenticate(c.Context(), input.Username, input.Password)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Login failed", err)
		}
		token, err := svc.GenerateToken(sess)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", nil, err.Error())
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Login successful",
			fiber.Map{"token": token})
	}
}

// ChangePassword replaces the caller's password.
// @Summary Change password
// @Description Re-verifies the current password before setting the new one
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChangePasswordRequest true "Current and new password"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /auth/change-password [post]
// @Security Bearer
func ChangePassword(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, svc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[ChangePasswordRequest](c)
		if input == nil {
			return err
		}
		if err := svc.ChangePassword(c.Context(), sess, input.CurrentPassword, input.NewPassword); err != nil {
			return common.ProblemDetailsJSON(c, "Password change failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Password changed", nil)
	}
}

// Logout revokes the caller's session; the token is dead afterwards.
// @Summary Log out
// @Tags auth
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /auth/logout [post]
// @Security Bearer
func Logout(svc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, svc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		svc.Logout(sess)
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Logged out", nil)
	}
}
