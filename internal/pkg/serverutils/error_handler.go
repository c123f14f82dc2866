package serverutils

import (
	"errors"

	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the common
// error body.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := ErrorResponse(code, err.Error())

	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		body = ErrorResponse(code, fe.Message)
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
		body = ErrorResponse(code, "Validation failed")
		body.Errors = ve.Fields
	case errors.Is(err, pipeline.ErrEmptyClaimID):
		code = fiber.StatusBadRequest
		body = ErrorResponse(code, err.Error())
	case errors.Is(err, contract.ErrNotFound), errors.Is(err, pipeline.ErrSessionNotFound):
		code = fiber.StatusNotFound
		body = ErrorResponse(code, err.Error())
	}

	return ctx.Status(code).JSON(body)
}
