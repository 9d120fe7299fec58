package controller

import (
	"aayush-bot/internal/pkg/serverutils"
	"aayush-bot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetUsers(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.ICollectorService
}

func NewAdminController(service service.ICollectorService) IAdminController {
	return &adminController{
		service: service,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Use(serverutils.JwtMiddleware)
	h.Get("/get-users", c.GetUsers)
}

// GetUsers returns a bare JSON array, most recently active first. Clients
// treat any non-array body as "no update", so errors still get the envelope.
func (c *adminController) GetUsers(ctx *fiber.Ctx) error {
	users, err := c.service.ListUsers(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(users)
}
