package dto

import (
	"github.com/DossaniParadise/rm-tracker/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	StoreCode     string                `json:"storeCode" validate:"required,max=16"`
	Category      domain.TicketCategory `json:"category" validate:"required,oneof=plumbing equipment it structural safety other"`
	Location      domain.TicketLocation `json:"location" validate:"required,oneof=interior exterior"`
	Priority      domain.TicketPriority `json:"priority" validate:"omitempty,oneof=routine urgent emergency"`
	Description   string                `json:"description" validate:"required,max=4000"`
	ContactName   string                `json:"contactName" validate:"max=120"`
	ContactPhone  string                `json:"contactPhone" validate:"max=40"`
	Photos        []string              `json:"photos" validate:"max=10"`
	RequestedDate *RequestedDate        `json:"requestedDate" validate:"omitempty"`
	// Assignee is "tech:<email>" or "vendor:<name>".
	Assignee string `json:"assignee" validate:"max=200"`
}

// RequestedDate is the reporter's preferred service window.
type RequestedDate struct {
	Type    string `json:"type" validate:"required,oneof=asap by range"`
	Date    string `json:"date" validate:"required_unless=Type asap"`
	EndDate string `json:"endDate" validate:"required_if=Type range"`
}

// UpdateTicketRequest is one save from the ticket detail view.
type UpdateTicketRequest struct {
	MutationID     string                `json:"mutationId" validate:"max=64"`
	Status         domain.TicketStatus   `json:"status" validate:"max=32"`
	Note           string                `json:"note" validate:"max=4000"`
	Photos         []string              `json:"photos" validate:"max=10"`
	WaitingReason  domain.WaitingReason  `json:"waitingReason" validate:"omitempty,oneof=parts vendor approval other"`
	WaitingNote    string                `json:"waitingReasonNote" validate:"max=1000"`
	Priority       domain.TicketPriority `json:"priority" validate:"omitempty,oneof=routine urgent emergency"`
	PriorityReason string                `json:"priorityReason" validate:"max=1000"`
	Assignee       *string               `json:"assignee" validate:"omitempty,max=200"`
}

// AssignTicketRequest assigns a ticket. An empty assignee unassigns it.
type AssignTicketRequest struct {
	MutationID string `json:"mutationId" validate:"max=64"`
	Assignee   string `json:"assignee" validate:"max=200"`
}

// TicketSummary is a list row without the activity log.
type TicketSummary struct {
	ID            string                `json:"id"`
	StoreCode     string                `json:"storeCode"`
	StoreName     string                `json:"storeName"`
	Category      domain.TicketCategory `json:"category"`
	Location      domain.TicketLocation `json:"location"`
	Priority      domain.TicketPriority `json:"priority"`
	Status        domain.TicketStatus   `json:"status"`
	AssignedTo    string                `json:"assignedTo"`
	AssigneeType  domain.AssigneeType   `json:"assigneeType"`
	WaitingReason domain.WaitingReason  `json:"waitingReason,omitempty"`
	Description   string                `json:"description"`
	CreatedBy     string                `json:"createdBy"`
	CreatedAt     int64                 `json:"createdAt"`
	UpdatedAt     int64                 `json:"updatedAt"`
}

// NewTicketSummary projects a ticket into a list row.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            ticket.ID,
		StoreCode:     ticket.StoreCode,
		StoreName:     ticket.StoreName,
		Category:      ticket.Category,
		Location:      ticket.Location,
		Priority:      ticket.Priority,
		Status:        ticket.Status,
		AssignedTo:    ticket.AssignedTo,
		AssigneeType:  ticket.AssigneeType,
		WaitingReason: ticket.WaitingReason,
		Description:   ticket.Description,
		CreatedBy:     ticket.CreatedBy,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// TicketSummaries projects a list of tickets.
func TicketSummaries(tickets []*domain.Ticket) []TicketSummary {
	out := make([]TicketSummary, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, NewTicketSummary(ticket))
	}
	return out
}

// ToDomain converts the requested window.
func (r *RequestedDate) ToDomain() *domain.RequestedDate {
	if r == nil {
		return nil
	}
	return &domain.RequestedDate{Type: r.Type, Date: r.Date, EndDate: r.EndDate}
}
