// Package transfer exposes internal and external transfers over HTTP.
package transfer

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/domain/money"
	"github.com/gokcenbank/ledger/pkg/middleware"
	authsvc "github.com/gokcenbank/ledger/pkg/service/auth"
	transfersvc "github.com/gokcenbank/ledger/pkg/service/transfer"
	"github.com/gokcenbank/ledger/webapi/common"
)

// Routes registers the transfer endpoints.
func Routes(app *fiber.App, svc *transfersvc.Service, authSvc *authsvc.Service, cfg *config.Jwt) {
	app.Post("/account/:name/transfer", middleware.JwtProtected(cfg), Internal(svc, authSvc))
	app.Post("/account/:name/transfer/external", middleware.JwtProtected(cfg), External(svc, authSvc))
}

// Internal moves funds between two of the caller's own accounts, free of
// charge.
// @Summary Transfer between own accounts
// @Tags transfers
// @Accept json
// @Produce json
// @Param name path string true "Source account name"
// @Param request body InternalTransferRequest true "Destination and amount"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /account/{name}/transfer [post]
// @Security Bearer
func Internal(svc *transfersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[InternalTransferRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		if err := svc.TransferInternal(c.Context(), sess, c.Params("name"), input.ToAccount, amount); err != nil {
			return common.ProblemDetailsJSON(c, "Transfer failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer successful",
			fiber.Map{"from": c.Params("name"), "to": input.ToAccount, "amount": amount.String()})
	}
}

// External sends funds to a named account of another user. A flat fee is
// charged on top of the amount.
// @Summary Transfer to another user
// @Tags transfers
// @Accept json
// @Produce json
// @Param name path string true "Source account name"
// @Param request body ExternalTransferRequest true "Recipient and amount"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /account/{name}/transfer/external [post]
// @Security Bearer
func External(svc *transfersvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[ExternalTransferRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		if err := svc.TransferExternal(c.Context(), sess, c.Params("name"),
			input.ToUsername, input.RecipientAccountName, amount); err != nil {
			return common.ProblemDetailsJSON(c, "Transfer failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer successful",
			fiber.Map{
				"from": c.Params("name"), "to_username": input.ToUsername,
				"to_account": input.RecipientAccountName,
				"amount":     amount.String(), "fee": svc.Fee().String(),
			})
	}
}
