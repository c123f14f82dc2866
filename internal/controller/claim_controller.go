package controller

import (
	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/internal/pkg/serverutils"
	"claim-pipeline-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IClaimController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	ListLogs(ctx *fiber.Ctx) error
	LatestLog(ctx *fiber.Ctx) error
}

type claimController struct {
	service service.IClaimService
}

func NewClaimController(service service.IClaimService) IClaimController {
	return &claimController{service: service}
}

func (c *claimController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/claims")
	h.Get("/", c.List)
	h.Get("/:claim_id", c.Get)
	h.Get("/:claim_id/logs", c.ListLogs)
	h.Get("/:claim_id/logs/latest", c.LatestLog)

	// Mutations
	h.Post("/", auth, c.Create)
	h.Delete("/:claim_id", auth, c.Delete)
}

func (c *claimController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateClaimRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Claim saved", res))
}

func (c *claimController) List(ctx *fiber.Ctx) error {
	var query dto.ListClaimsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query parameters"))
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Claims", res))
}

func (c *claimController) Get(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), ctx.Params("claim_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Claim", res))
}

func (c *claimController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), ctx.Params("claim_id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Claim deleted", nil))
}

func (c *claimController) ListLogs(ctx *fiber.Ctx) error {
	res, err := c.service.ListLogs(ctx.UserContext(), ctx.Params("claim_id"), ctx.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Agent logs", res))
}

func (c *claimController) LatestLog(ctx *fiber.Ctx) error {
	res, err := c.service.LatestLog(ctx.UserContext(), ctx.Params("claim_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Latest agent log", res))
}
