package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/DossaniParadise/rm-tracker/internal/api/dto"
	"github.com/DossaniParadise/rm-tracker/internal/auth"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/service"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, assignmentService *service.AssignmentService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, assignments: assignmentService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		StoreCode:     req.StoreCode,
		Category:      req.Category,
		Location:      req.Location,
		Priority:      req.Priority,
		Description:   req.Description,
		ContactName:   req.ContactName,
		ContactPhone:  req.ContactPhone,
		Photos:        req.Photos,
		RequestedDate: req.RequestedDate.ToDomain(),
		Assignee:      req.Assignee,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticket})
}

// ListTickets GET /api/tickets?store=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, c.Query("store"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketSummaries(tickets)})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// UpdateTicket POST /api/tickets/:id/updates.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), actor, c.Params("id"), service.TicketUpdateInput{
		MutationID:     req.MutationID,
		Status:         req.Status,
		Note:           req.Note,
		Photos:         req.Photos,
		WaitingReason:  req.WaitingReason,
		WaitingNote:    req.WaitingNote,
		Priority:       req.Priority,
		PriorityReason: req.PriorityReason,
		Assignee:       req.Assignee,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// AssignTicket POST /api/tickets/:id/assignment.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.assignments.AssignTicket(c.UserContext(), actor, c.Params("id"), req.Assignee, req.MutationID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

// Assignees GET /api/stores/:code/assignees?category=.
func (h *TicketsHandler) Assignees(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	category := domain.TicketCategory(c.Query("category"))
	if category != "" && !category.Valid() {
		return apperrors.NewValidationError("unknown category", map[string]any{"category": string(category)})
	}
	assignees, err := h.assignments.EligibleAssignees(c.UserContext(), actor, c.Params("code"), category)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignees})
}

func currentActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]any{"error": err.Error()})
	}
	return dto.Validate(dest)
}
