package events

import (
	"time"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketNoteAdded       EventType = "ticket_note_added"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketNoteAdded,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string                `json:"id"`
	Type      EventType             `json:"type"`
	TicketID  string                `json:"ticket_id"`
	StoreCode string                `json:"store_code"`
	Category  domain.TicketCategory `json:"category"`
	// Assignee is a technician email or a vendor name, per AssigneeType.
	Assignee     string              `json:"assignee,omitempty"`
	AssigneeType domain.AssigneeType `json:"assignee_type,omitempty"`
	Actor        Actor               `json:"actor"`
	Timestamp    time.Time           `json:"timestamp"`
	Payload      interface{}         `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	StoreName   string                `json:"store_name"`
	Priority    domain.TicketPriority `json:"priority"`
	Location    domain.TicketLocation `json:"location"`
	Description string                `json:"description"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus     domain.TicketStatus  `json:"old_status"`
	NewStatus     domain.TicketStatus  `json:"new_status"`
	WaitingReason domain.WaitingReason `json:"waiting_reason,omitempty"`
	Comment       string               `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	Reason      string                `json:"reason"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo   string              `json:"assigned_to"`
	AssigneeType domain.AssigneeType `json:"assignee_type"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NotePreview string `json:"note_preview"`
	PhotoCount  int    `json:"photo_count"`
}
