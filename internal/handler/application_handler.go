package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/admission-go-api/internal/dto"
	"github.com/noah-isme/admission-go-api/internal/service"
	"github.com/noah-isme/admission-go-api/internal/utils"
)

// ApplicationHandler exposes the applicant side of the lifecycle.
type ApplicationHandler struct {
	service service.LifecycleService
	logger  zerolog.Logger
}

// NewApplicationHandler builds an application handler instance.
func NewApplicationHandler(service service.LifecycleService, logger zerolog.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		service: service,
		logger:  logger.With().Str("component", "application_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ApplicationHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Post("/:id/submit", h.submit)
	router.Post("/:id/freeze", h.freeze)
	router.Get("/:id/history", h.history)
	router.Get("/:id/completeness", h.completeness)
}

func (h *ApplicationHandler) create(c *fiber.Ctx) error {
	var payload dto.CreateApplicationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	actor := actorFromContext(c)
	payload.UserID = actor.ID

	application, err := h.service.Create(c.UserContext(), payload, actor)
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "application created", application)
}

func (h *ApplicationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Get(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application retrieved", application)
}

func (h *ApplicationHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ApplicationFieldsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	application, err := h.service.UpdateDraftFields(c.UserContext(), id, payload, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application updated", application)
}

func (h *ApplicationHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Submit(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application submitted", application)
}

func (h *ApplicationHandler) freeze(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	application, err := h.service.Freeze(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "application frozen", application)
}

func (h *ApplicationHandler) history(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	entries, err := h.service.History(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "status history retrieved", entries)
}

func (h *ApplicationHandler) completeness(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Completeness(c.UserContext(), id, actorFromContext(c))
	if err != nil {
		return sendLifecycleError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "completeness evaluated", report)
}
