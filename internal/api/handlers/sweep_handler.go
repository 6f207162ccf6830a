package handlers

import (
	"github.com/gofiber/fiber/v2"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/logger"
)

type SweepHandler struct {
	sweeper job.Sweeper
}

func NewSweepHandler(sweeper job.Sweeper) *SweepHandler {
	return &SweepHandler{sweeper: sweeper}
}

// Sweep runs one sweep synchronously and returns its summary.
func (h *SweepHandler) Sweep(c *fiber.Ctx) error {
	summary, err := h.sweeper.Sweep(c.UserContext())
	if err != nil {
		logger.L().Errorf("sweep failed: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}
