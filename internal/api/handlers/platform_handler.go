package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/service"
)

type PlatformHandler struct {
	ps service.PlatformService
}

func NewPlatformHandler(ps service.PlatformService) *PlatformHandler {
	return &PlatformHandler{ps: ps}
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	accountList, err := h.ps.List(c.UserContext(), GetUserID(c))
	if err != nil {
		logger.L().Error(err.Error())
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to fetch social accounts")
	}
	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid account id")
	}

	err = h.ps.Delete(c.UserContext(), GetUserID(c), int64(accountID))
	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, service.ErrAccountNotFound):
		return errorResponse(c, fiber.StatusNotFound, "Social account not found")
	default:
		logger.L().Error(err.Error())
		return errorResponse(c, fiber.StatusInternalServerError, "Unable to delete social account")
	}
}
