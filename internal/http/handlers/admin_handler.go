package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/services"
)

type AdminHandler struct {
	admin *services.AdminService
	log   *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

func (h *AdminHandler) ForceComplete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	deal, err := h.admin.ForceComplete(c.Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *AdminHandler) ForceCancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	deal, err := h.admin.ForceCancel(c.Context(), middleware.GetActorID(c), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *AdminHandler) BlockActor(c *fiber.Ctx) error {
	actorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid actor id"})
	}

	cancelled, err := h.admin.BlockActor(c.Context(), middleware.GetActorID(c), actorID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	ids := make([]string, 0, len(cancelled))
	for _, id := range cancelled {
		ids = append(ids, id.String())
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.BlockActorResponse{
		ActorID:        actorID,
		CancelledDeals: ids,
	}})
}

func (h *AdminHandler) UnblockActor(c *fiber.Ctx) error {
	actorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid actor id"})
	}

	if err := h.admin.UnblockActor(c.Context(), middleware.GetActorID(c), actorID); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AdminHandler) Broadcast(c *fiber.Ctx) error {
	var req dto.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	// Partial results matter here: a cancelled broadcast still reports how
	// far it got, with 200 and the counts.
	result, err := h.admin.Broadcast(c.Context(), middleware.GetActorID(c), req.Text)
	if err != nil && result.Sent == 0 && result.Failed == 0 {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: err == nil, Data: result})
}

func (h *AdminHandler) PlatformStats(c *fiber.Ctx) error {
	stats, err := h.admin.PlatformStats(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}

func (h *AdminHandler) DailyStats(c *fiber.Ctx) error {
	stats, err := h.admin.DailyStats(c.Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: stats})
}

func (h *AdminHandler) ActorAudit(c *fiber.Ctx) error {
	actorID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid actor id"})
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	entries, err := h.admin.ActorAudit(c.Context(), actorID, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *AdminHandler) ListDeals(c *fiber.Ctx) error {
	var statuses []string
	if v := c.Query("status"); v != "" {
		statuses = strings.Split(v, ",")
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	deals, err := h.admin.ListDealsByStatus(c.Context(), statuses, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deals})
}
