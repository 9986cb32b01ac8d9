package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/admission-go-api/internal/dto"
	"github.com/noah-isme/admission-go-api/internal/service"
	"github.com/noah-isme/admission-go-api/internal/utils"
)

// AdminApplicationHandler wires review endpoints for admins and program admins.
type AdminApplicationHandler struct {
	service   service.LifecycleService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminApplicationHandler constructs the handler.
func NewAdminApplicationHandler(service service.LifecycleService, validator *validator.Validate, logger zerolog.Logger) *AdminApplicationHandler {
	return &AdminApplicationHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "admin_application_handler").Logger(),
	}
}

// Register attaches review endpoints to the router group.
func (h *AdminApplicationHandler) Register(router fiber.Router) {
	router.Get("/:id", h.get)
	router.Get("/:id/history", h.history)
	router.Patch("/:id/status", h.setStatus)
	router.Post("/:id/unfreeze", h.unfreeze)
}

func (h *AdminApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	application, err := h.service.Get(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *AdminApplicationHandler) history(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	entries, err := h.service.History(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "status history retrieved", entries)
}

func (h *AdminApplicationHandler) setStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SetStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.SetStatus(c.UserContext(), id, payload.Status, actorFromContext(c), payload.Comments)
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application status updated", application)
}

func (h *AdminApplicationHandler) unfreeze(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.UnfreezeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Unfreeze(c.UserContext(), id, actorFromContext(c), payload.Reason)
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application unfrozen", application)
}
