package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/config"
	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/models"
	"github.com/escrowdesk/backend/internal/services"
)

type DealHandler struct {
	escrow *services.EscrowService
	cfg    *config.Config
	log    *zap.Logger
}

func NewDealHandler(escrow *services.EscrowService, cfg *config.Config, log *zap.Logger) *DealHandler {
	return &DealHandler{escrow: escrow, cfg: cfg, log: log}
}

// isAdmin lets configured admins view any deal's trail, not just their own.
func (h *DealHandler) isAdmin(c *fiber.Ctx) bool {
	return h.cfg.IsAdmin(middleware.GetActorID(c))
}

func (h *DealHandler) CreateDeal(c *fiber.Ctx) error {
	var req dto.CreateDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	deal, err := h.escrow.CreateDeal(c.Context(), middleware.GetActorID(c), services.CreateDealInput{
		Amount:    req.Amount,
		Condition: req.Condition,
		Secret:    req.Secret,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) ListDeals(c *fiber.Ctx) error {
	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	deals, err := h.escrow.ListDealsForActor(c.Context(), middleware.GetActorID(c), limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deals})
}

func (h *DealHandler) GetDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	deal, err := h.escrow.GetDeal(c.Context(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) JoinDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	var req dto.JoinDealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	deal, err := h.escrow.JoinDeal(c.Context(), id, middleware.GetActorID(c), req.Secret)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) SelectPayment(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	var req dto.SelectPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	info, err := h.escrow.SelectPaymentChannel(c.Context(), id, middleware.GetActorID(c), req.Method)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: info})
}

func (h *DealHandler) CompleteDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	deal, err := h.escrow.CompleteDeal(c.Context(), id, middleware.GetActorID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) CancelDeal(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	deal, err := h.escrow.CancelDeal(c.Context(), id, middleware.GetActorID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: deal})
}

func (h *DealHandler) GetDealEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	entries, err := h.escrow.GetDealEvents(c.Context(), id, middleware.GetActorID(c), h.isAdmin(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *DealHandler) GetTransactions(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid deal id"})
	}

	txs, err := h.escrow.GetTransactions(c.Context(), id, middleware.GetActorID(c), h.isAdmin(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

func (h *DealHandler) PaymentMethods(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.PaymentMethodsResponse{
		Methods: h.escrow.PaymentMethods(),
	}})
}
