package controller

import (
	"time"

	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/internal/pkg/serverutils"
	"claim-pipeline-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISystemController interface {
	RegisterRoutes(app fiber.Router, api fiber.Router)
	Health(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
}

type systemController struct {
	service service.ISystemService
}

func NewSystemController(service service.ISystemService) ISystemController {
	return &systemController{service: service}
}

func (c *systemController) RegisterRoutes(app fiber.Router, api fiber.Router) {
	app.Get("/health", c.Health)
	api.Get("/status", c.Status)
	api.Get("/system/logs", c.Logs)
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (c *systemController) Status(ctx *fiber.Ctx) error {
	res := c.service.Status(ctx.UserContext())
	code := fiber.StatusOK
	if res.Status == "unhealthy" {
		code = fiber.StatusServiceUnavailable
	}
	return ctx.Status(code).JSON(serverutils.SuccessResponse("System status", res))
}

func (c *systemController) Logs(ctx *fiber.Ctx) error {
	var query dto.SystemLogsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query parameters"))
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	logs, err := c.service.Logs(query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}
