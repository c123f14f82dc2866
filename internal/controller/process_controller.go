package controller

import (
	"claim-pipeline-be/internal/pkg/serverutils"
	"claim-pipeline-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IProcessController interface {
	RegisterRoutes(r fiber.Router)
	StartProcessing(ctx *fiber.Ctx) error
}

type processController struct {
	service service.IProcessingService
}

func NewProcessController(service service.IProcessingService) IProcessController {
	return &processController{service: service}
}

func (c *processController) RegisterRoutes(r fiber.Router) {
	r.Post("/process/:claim_id", c.StartProcessing)
}

// StartProcessing answers as soon as the session exists; the run continues
// in the background and is observed through the returned stream URLs.
func (c *processController) StartProcessing(ctx *fiber.Ctx) error {
	res, err := c.service.StartProcessing(ctx.UserContext(), ctx.Params("claim_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Processing started", res))
}
