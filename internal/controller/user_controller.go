package controller

import (
	"aayush-bot/internal/dto"
	"aayush-bot/internal/pkg/serverutils"
	"aayush-bot/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IUserController interface {
	RegisterRoutes(r fiber.Router)
	UpdateStatus(ctx *fiber.Ctx) error
	SaveChat(ctx *fiber.Ctx) error
}

type userController struct {
	service service.ICollectorService
}

func NewUserController(service service.ICollectorService) IUserController {
	return &userController{
		service: service,
	}
}

func (c *userController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/user")
	h.Post("/status", c.UpdateStatus)
	h.Post("/save-chat", c.SaveChat)
}

func (c *userController) UpdateStatus(ctx *fiber.Ctx) error {
	var req dto.PresenceUpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := c.service.UpdatePresence(ctx.Context(), &req); err != nil {
		if err.Error() == "email is required" {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Status updated", nil))
}

func (c *userController) SaveChat(ctx *fiber.Ctx) error {
	var req dto.SaveChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}

	if err := c.service.SaveChatLine(ctx.Context(), &req); err != nil {
		if err.Error() == "email is required" || err.Error() == "text is required" {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Chat saved", nil))
}
