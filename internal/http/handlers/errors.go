package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/escrowdesk/backend/internal/http/dto"
	"github.com/escrowdesk/backend/internal/middleware"
	"github.com/escrowdesk/backend/internal/models"
)

// statusFor maps the domain error taxonomy onto HTTP statuses. Handlers
// never branch on error strings.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrNotAuthorized):
		return fiber.StatusForbidden
	case errors.Is(err, models.ErrPolicy):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := statusFor(err)
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)

	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("path", c.Path()),
			zap.Error(err))
		msg = "internal server error"
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, RequestID: reqID})
}
