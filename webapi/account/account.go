// Package account exposes deposits, withdrawals, balances and transaction
// histories over HTTP.
package account

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gokcenbank/ledger/pkg/config"
	"github.com/gokcenbank/ledger/pkg/domain/money"
	"github.com/gokcenbank/ledger/pkg/middleware"
	accountsvc "github.com/gokcenbank/ledger/pkg/service/account"
	authsvc "github.com/gokcenbank/ledger/pkg/service/auth"
	"github.com/gokcenbank/ledger/webapi/common"
)

// Routes registers the account endpoints. All of them require a valid token.
//
//   - POST /account/:name/deposit      : deposit cash into the named account
//   - POST /account/:name/withdraw     : withdraw cash from the named account
//   - GET  /account/:name/balance      : current balance (audited inquiry)
//   - GET  /account/:name/transactions : recent transaction history
//   - GET  /user/history               : recent user-level audit history
func Routes(app *fiber.App, svc *accountsvc.Service, authSvc *authsvc.Service, cfg *config.Jwt) {
	app.Post("/account/:name/deposit", middleware.JwtProtected(cfg), Deposit(svc, authSvc))
	app.Post("/account/:name/withdraw", middleware.JwtProtected(cfg), Withdraw(svc, authSvc))
	app.Get("/account/:name/balance", middleware.JwtProtected(cfg), GetBalance(svc, authSvc))
	app.Get("/account/:name/transactions", middleware.JwtProtected(cfg), GetTransactions(svc, authSvc))
	app.Get("/user/history", middleware.JwtProtected(cfg), GetUserHistory(svc, authSvc))
}

// Deposit credits cash into the named account.
// @Summary Deposit cash
// @Description Amounts must be at least 50 and a multiple of 50
// @Tags accounts
// @Accept json
// @Produce json
// @Param name path string true "Account name"
// @Param request body AmountRequest true "Amount to deposit"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /account/{name}/deposit [post]
// @Security Bearer
func Deposit(svc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		balance, err := svc.Deposit(c.Context(), sess, c.Params("name"), amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Deposit failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Deposit successful",
			fiber.Map{"account": c.Params("name"), "balance": balance.String()})
	}
}

// Withdraw debits cash from the named account.
// @Summary Withdraw cash
// @Description Subject to the denomination rules and the daily limit
// @Tags accounts
// @Accept json
// @Produce json
// @Param name path string true "Account name"
// @Param request body AmountRequest true "Amount to withdraw"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 422 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /account/{name}/withdraw [post]
// @Security Bearer
func Withdraw(svc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err
		}
		amount, err := money.Parse(input.Amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid amount", err)
		}
		balance, err := svc.Withdraw(c.Context(), sess, c.Params("name"), amount)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Withdrawal failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Withdrawal successful",
			fiber.Map{"account": c.Params("name"), "balance": balance.String()})
	}
}

// GetBalance returns the named account's balance. The inquiry is recorded in
// both audit histories.
// @Summary Account balance
// @Tags accounts
// @Produce json
// @Param name path string true "Account name"
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Failure 423 {object} common.ProblemDetails
// @Router /account/{name}/balance [get]
// @Security Bearer
func GetBalance(svc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		balance, err := svc.GetBalance(c.Context(), sess, c.Params("name"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "Balance inquiry failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Balance retrieved",
			fiber.Map{"account": c.Params("name"), "balance": balance.String()})
	}
}

// GetTransactions returns the account's recent history, most recent first.
// @Summary Account transactions
// @Tags accounts
// @Produce json
// @Param name path string true "Account name"
// @Param limit query int false "Max entries to return" default(10)
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /account/{name}/transactions [get]
// @Security Bearer
func GetTransactions(svc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		entries, err := svc.GetHistory(c.Context(), sess, c.Params("name"), c.QueryInt("limit"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "History retrieval failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions retrieved",
			fiber.Map{"account": c.Params("name"), "transactions": entries})
	}
}

// GetUserHistory returns the user-level audit history, most recent first.
// @Summary User activity history
// @Tags accounts
// @Produce json
// @Param limit query int false "Max entries to return" default(10)
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Router /user/history [get]
// @Security Bearer
func GetUserHistory(svc *accountsvc.Service, authSvc *authsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := common.CurrentSession(c, authSvc)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		entries, err := svc.GetUserHistory(c.Context(), sess, c.QueryInt("limit"))
		if err != nil {
			return common.ProblemDetailsJSON(c, "History retrieval failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "History retrieved",
			fiber.Map{"history": entries})
	}
}
