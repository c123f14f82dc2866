package controller

import (
	"claim-pipeline-be/internal/pkg/serverutils"
	"claim-pipeline-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Active(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	Events(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Get("/active", c.Active)
	h.Get("/:session_id", c.Get)
	h.Get("/:session_id/events", c.Events)
}

func (c *sessionController) Active(ctx *fiber.Ctx) error {
	res := c.service.Active(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Active sessions", res))
}

func (c *sessionController) Get(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), ctx.Params("session_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session", res))
}

func (c *sessionController) Events(ctx *fiber.Ctx) error {
	after := ctx.QueryInt("after", 0)
	if after < 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "after must not be negative"))
	}

	res, err := c.service.EventsAfter(ctx.UserContext(), ctx.Params("session_id"), int64(after))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session events", res))
}
