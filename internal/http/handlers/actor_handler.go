package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/repositories"
	"github.com/escrowdesk/backend/internal/services"
)

type ActorHandler struct {
	actorRepo *repositories.ActorRepo
	escrow    *services.EscrowService
	log       *zap.Logger
}

func NewActorHandler(actorRepo *repositories.ActorRepo, escrow *services.EscrowService, log *zap.Logger) *ActorHandler {
	return &ActorHandler{actorRepo: actorRepo, escrow: escrow, log: log}
}

func (h *ActorHandler) GetMe(c *fiber.Ctx) error {
	actor, err := h.actorRepo.GetByID(c.Context(), middleware.GetActorID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: actor})
}

func (h *ActorHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.escrow.GetStats(c.Context(), middleware.GetActorID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}

func (h *ActorHandler) Ping(c *fiber.Ctx) error {
	if err := h.actorRepo.Touch(c.Context(), middleware.GetActorID(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
