// Package common holds the response envelope, RFC 9457 problem details and
// request binding shared by all webapi handler packages.
package common

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gokcenbank/ledger/pkg/domain/ledger"
	"github.com/gokcenbank/ledger/pkg/domain/money"
)

// Response is the standard success envelope.
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Errors   any    `json:"errors,omitempty"`
}

// SuccessResponseJSON writes the success envelope.
func SuccessResponseJSON(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Response{Status: status, Message: message, Data: data})
}

// ProblemDetailsJSON writes an RFC 9457 problem response. The status defaults
// to the domain mapping of err (500 when err is nil); extras may override it
// with an int or add a string detail.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, extras ...any) error {
	status := fiber.StatusInternalServerError
	if err != nil {
		status = ErrorToStatusCode(err)
	}
	pd := ProblemDetails{Type: "about:blank", Title: title}
	if err != nil {
		pd.Detail = err.Error()
	}
	for _, extra := range extras {
		switch v := extra.(type) {
		case int:
			status = v
		case string:
			pd.Detail = v
		default:
			pd.Errors = v
		}
	}
	pd.Status = status
	pd.Instance = c.OriginalURL()
	c.Set(fiber.HeaderContentType, "application/problem+json")
	return c.Status(status).JSON(pd)
}

// ErrorToStatusCode maps domain errors to HTTP status codes.
func ErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUserNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrRecipientNotFound),
		errors.Is(err, ledger.ErrRecipientAccountNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidCredentials),
		errors.Is(err, ledger.ErrSessionInvalid):
		return fiber.StatusUnauthorized
	case errors.Is(err, ledger.ErrAccountLocked):
		return fiber.StatusLocked
	case errors.Is(err, ledger.ErrDuplicateUser):
		return fiber.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrDailyLimitExceeded),
		errors.Is(err, ledger.ErrInvalidDenomination),
		errors.Is(err, ledger.ErrSameAccountTransfer),
		errors.Is(err, ledger.ErrSelfTransfer):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, ledger.ErrEmptyUsername),
		errors.Is(err, ledger.ErrEmptyPassword),
		errors.Is(err, ledger.ErrWeakPassword),
		errors.Is(err, money.ErrInvalidAmountFormat),
		errors.Is(err, money.ErrAmountExceedsMaxSafeInt):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// BindAndValidate parses the request body and validates it with
// go-playground/validator. On failure the error response is already written
// and the returned pointer is nil.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if err := c.BodyParser(&input); err != nil {
		return nil, ProblemDetailsJSON(c, "Invalid request body", err, fiber.StatusBadRequest)
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return nil, ProblemDetailsJSON(c, "Validation failed", err, fiber.StatusBadRequest)
	}
	return &input, nil
}
