package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// EventHandler serves events, the creation wizard and ticket tiers.
type EventHandler struct {
	service   service.EventService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(svc service.EventService, validate *validator.Validate, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		service:   svc,
		validator: validate,
		logger:    logger.With().Str("component", "event_handler").Logger(),
	}
}

// RegisterPublic binds read routes that work with or without a token.
func (h *EventHandler) RegisterPublic(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

// Register binds routes that require an authenticated organiser.
func (h *EventHandler) Register(router fiber.Router) {
	router.Post("/wizard/validate", h.validateStep)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/tickets", h.addTicket)
	router.Put("/:id/tickets/:ticketId", h.updateTicket)
	router.Delete("/:id/tickets/:ticketId", h.deactivateTicket)
}

func (h *EventHandler) list(c *fiber.Ctx) error {
	var query dto.EventListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	if err := h.validator.Struct(query); err != nil {
		return respondError(c, h.logger, err, "failed to list events")
	}

	result, err := h.service.List(requestContext(c), middleware.ActorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list events")
	}
	return utils.OK(c, result.Items, "events", result.Pagination)
}

func (h *EventHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}
	event, err := h.service.Get(requestContext(c), middleware.ActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load event")
	}
	return utils.SendSuccess(c, "event", event)
}

func (h *EventHandler) validateStep(c *fiber.Ctx) error {
	var payload dto.StepValidateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.ValidateStep(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to validate step")
	}
	return utils.SendSuccess(c, "step evaluated", result)
}

func (h *EventHandler) create(c *fiber.Ctx) error {
	var payload dto.EventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	event, err := h.service.Create(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create event")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "event created", event)
}

func (h *EventHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}
	var payload dto.EventRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	event, err := h.service.Update(requestContext(c), middleware.ActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update event")
	}
	return utils.SendSuccess(c, "event updated", event)
}

func (h *EventHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}
	if err := h.service.Delete(requestContext(c), middleware.ActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete event")
	}
	return utils.SendSuccess(c, "event deleted", fiber.Map{"id": id})
}

func (h *EventHandler) addTicket(c *fiber.Ctx) error {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}
	var payload dto.TicketRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ticket, err := h.service.AddTicket(requestContext(c), middleware.ActorFromContext(c), eventID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add ticket")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "ticket added", ticket)
}

func (h *EventHandler) updateTicket(c *fiber.Ctx) error {
	eventID, ticketID, err := ticketParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}
	var payload dto.TicketRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	ticket, err := h.service.UpdateTicket(requestContext(c), middleware.ActorFromContext(c), eventID, ticketID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update ticket")
	}
	return utils.SendSuccess(c, "ticket updated", ticket)
}

func (h *EventHandler) deactivateTicket(c *fiber.Ctx) error {
	eventID, ticketID, err := ticketParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := h.service.DeactivateTicket(requestContext(c), middleware.ActorFromContext(c), eventID, ticketID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to deactivate ticket")
	}
	return utils.SendSuccess(c, "ticket deactivated", ticket)
}

func ticketParams(c *fiber.Ctx) (uint, uint, error) {
	eventID, err := parseIDParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	ticketID, err := parseIDParam(c, "ticketId")
	if err != nil {
		return 0, 0, err
	}
	return eventID, ticketID, nil
}
