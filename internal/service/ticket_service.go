package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/assignment"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/events"
	"github.com/DossaniParadise/rm-tracker/internal/lifecycle"
	"github.com/DossaniParadise/rm-tracker/internal/observability"
	"github.com/DossaniParadise/rm-tracker/internal/repository"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

// StoreDirectory is the read-only store lookup the services need.
type StoreDirectory interface {
	Store(code string) (domain.Store, bool)
	StoresFor(scope domain.StoreScope) []domain.Store
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketStore
	counters   repository.CounterStore
	vendors    repository.VendorRepository
	stores     StoreDirectory
	engine     *lifecycle.Engine
	resolver   *assignment.Resolver
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketStore  repository.TicketStore
	CounterStore repository.CounterStore
	VendorRepo   repository.VendorRepository
	Stores       StoreDirectory
	Engine       *lifecycle.Engine
	Resolver     *assignment.Resolver
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Now          func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	StoreCode     string
	Category      domain.TicketCategory
	Location      domain.TicketLocation
	Priority      domain.TicketPriority
	Description   string
	ContactName   string
	ContactPhone  string
	Photos        []string
	RequestedDate *domain.RequestedDate
	// Assignee is a tagged "tech:<email>" or "vendor:<name>" value; empty leaves the ticket unassigned.
	Assignee string
}

// TicketUpdateInput is one save from the ticket detail view. Zero values leave
// the corresponding aspect untouched.
type TicketUpdateInput struct {
	MutationID     string
	Status         domain.TicketStatus
	Note           string
	Photos         []string
	WaitingReason  domain.WaitingReason
	WaitingNote    string
	Priority       domain.TicketPriority
	PriorityReason string
	Assignee       *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketStore,
		counters:   deps.CounterStore,
		vendors:    deps.VendorRepo,
		stores:     deps.Stores,
		engine:     deps.Engine,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTicket files a new ticket at a store. The id comes from the store's
// per-category counter; an optional assignee is applied in the same write.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	store, ok := s.stores.Store(strings.TrimSpace(input.StoreCode))
	if !ok {
		return nil, apperrors.NewNotFound("store", map[string]any{"store_code": input.StoreCode})
	}
	if !canAccessStore(actor, store.Code) {
		return nil, apperrors.NewForbidden("store is outside your scope")
	}
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	ticket := &domain.Ticket{
		StoreCode:     store.Code,
		StoreName:     store.Name,
		Brand:         store.Brand,
		Category:      input.Category,
		Location:      input.Location,
		Priority:      input.Priority,
		Status:        domain.TicketStatusUnassigned,
		AssigneeType:  domain.AssigneeUnassigned,
		Description:   strings.TrimSpace(input.Description),
		ContactName:   strings.TrimSpace(input.ContactName),
		ContactPhone:  strings.TrimSpace(input.ContactPhone),
		Photos:        nonEmptyStrings(input.Photos),
		RequestedDate: input.RequestedDate,
		CreatedBy:     actor.Email,
		CreatedByName: actor.DisplayName(),
		CreatedAt:     now,
		UpdatedAt:     now,
		Activity: []domain.ActivityRecord{{
			Action:    domain.ActionCreated,
			By:        actor.DisplayName(),
			ByEmail:   actor.Email,
			Timestamp: now,
			Note:      "Ticket created",
		}},
	}

	var initial []domain.ActivityRecord
	if strings.TrimSpace(input.Assignee) != "" {
		resolved, err := s.resolveAssignee(ctx, store.Code, input.Assignee)
		if err != nil {
			s.metrics.RecordMutation("create", outcome(err))
			return nil, err
		}
		patch, err := s.engine.Plan(ticket, actor, lifecycle.Request{Assignment: &resolved})
		if err != nil {
			s.metrics.RecordMutation("create", outcome(err))
			return nil, err
		}
		if _, err := patch.Apply(ticket); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		initial = ticket.Activity[1:]
	}

	sequence, err := s.counters.Increment(ctx, domain.CounterPath(store.Code, ticket.Category))
	if err != nil {
		s.logger.Error("allocate ticket number failed", zap.String("store_code", store.Code), zap.Error(err))
		s.metrics.RecordMutation("create", outcome(err))
		return nil, err
	}
	ticket.ID = domain.TicketID(store.Code, ticket.Category, sequence)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.logger.Error("create ticket failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		s.metrics.RecordMutation("create", outcome(err))
		return nil, err
	}
	s.metrics.RecordMutation("create", outcome(nil))
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("store_code", ticket.StoreCode),
		zap.String("priority", string(ticket.Priority)),
		zap.String("by", actor.Email))

	s.publishEvent(ctx, ticket, actor, events.Event{
		Type: events.EventTicketCreated,
		Payload: events.TicketCreatedPayload{
			StoreName:   ticket.StoreName,
			Priority:    ticket.Priority,
			Location:    ticket.Location,
			Description: ticket.Description,
		},
	})
	s.publishRecords(ctx, ticket, actor, initial)
	return ticket, nil
}

// ListTickets returns the tickets the actor may see, optionally limited to one store.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, storeCode string) ([]*domain.Ticket, error) {
	storeCode = strings.TrimSpace(storeCode)
	if storeCode != "" && actor.Role != domain.RoleTechnician && !canAccessStore(actor, storeCode) {
		return nil, apperrors.NewForbidden("store is outside your scope")
	}
	tickets, err := s.tickets.List(ctx, repository.TicketQuery{StoreCode: storeCode})
	if err != nil {
		return nil, err
	}
	return visibleTickets(actor, tickets), nil
}

// GetTicket returns one ticket with its full activity log.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !canOpenTicket(actor, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// UpdateTicket validates and applies a status transition, note, priority change
// and/or reassignment as one atomic write. A retry carrying an already applied
// mutation id returns the current ticket unchanged.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if input.MutationID != "" && (domain.TicketPatch{MutationID: input.MutationID}).Applied(ticket) {
		return ticket, nil
	}

	req := lifecycle.Request{
		MutationID: input.MutationID,
		Target:     input.Status,
		Note:       input.Note,
		Photos:     input.Photos,
	}
	if input.WaitingReason != "" || strings.TrimSpace(input.WaitingNote) != "" {
		req.Waiting = &lifecycle.WaitingInput{Reason: input.WaitingReason, Note: input.WaitingNote}
	}
	if input.Priority != "" {
		req.Priority = &lifecycle.PriorityInput{Priority: input.Priority, Reason: input.PriorityReason}
	}
	if input.Assignee != nil {
		resolved, err := s.resolveAssignee(ctx, ticket.StoreCode, *input.Assignee)
		if err != nil {
			s.metrics.RecordMutation("update", outcome(err))
			return nil, err
		}
		req.Assignment = &resolved
	}

	patch, err := s.engine.Plan(ticket, actor, req)
	if err != nil {
		s.metrics.RecordMutation("update", outcome(err))
		s.logger.Debug("ticket update rejected",
			zap.String("ticket_id", ticketID),
			zap.String("by", actor.Email),
			zap.Error(err))
		return nil, err
	}

	updated, err := s.tickets.Update(ctx, ticketID, patch)
	if err != nil {
		s.metrics.RecordMutation("update", outcome(err))
		s.logger.Warn("ticket update failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordMutation("update", outcome(nil))
	s.logger.Info("ticket updated",
		zap.String("ticket_id", ticketID),
		zap.String("status", string(updated.Status)),
		zap.Int("records", len(patch.Activity)),
		zap.String("by", actor.Email))

	s.publishRecords(ctx, updated, actor, patch.Activity)
	return updated, nil
}

func (s *TicketService) resolveAssignee(ctx context.Context, storeCode, raw string) (domain.Assignment, error) {
	resolved, err := assignment.ResolveAssignment(raw)
	if err != nil || resolved.IsEmpty() {
		return resolved, err
	}
	var vendors []domain.Vendor
	if resolved.AssigneeType == domain.AssigneeVendor {
		if vendors, err = s.vendors.List(ctx); err != nil {
			return domain.Assignment{}, err
		}
	}
	return s.resolver.Validate(storeCode, resolved, vendors)
}

func validateCreate(input *TicketCreateInput) error {
	details := map[string]any{}
	if !input.Category.Valid() {
		details["category"] = "unknown category"
	}
	if !input.Location.Valid() {
		details["location"] = "must be interior or exterior"
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityRoutine
	}
	if !input.Priority.Valid() {
		details["priority"] = "unknown priority"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}
	return nil
}

func (s *TicketService) publishRecords(ctx context.Context, ticket *domain.Ticket, actor domain.Actor, records []domain.ActivityRecord) {
	for _, record := range records {
		event, ok := eventForRecord(record)
		if !ok {
			continue
		}
		s.publishEvent(ctx, ticket, actor, event)
	}
}

func (s *TicketService) publishEvent(ctx context.Context, ticket *domain.Ticket, actor domain.Actor, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	event.TicketID = ticket.ID
	event.StoreCode = ticket.StoreCode
	event.Category = ticket.Category
	event.Assignee = ticket.AssignedTo
	event.AssigneeType = ticket.AssigneeType
	event.Actor = events.Actor{Email: actor.Email, Name: actor.DisplayName(), Role: actor.Role}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func eventForRecord(record domain.ActivityRecord) (events.Event, bool) {
	switch record.Action {
	case domain.ActionStatusChange:
		return events.Event{Type: events.EventTicketStatusChanged, Payload: events.TicketStatusChangedPayload{
			OldStatus:     record.OldStatus,
			NewStatus:     record.NewStatus,
			WaitingReason: record.WaitingReason,
			Comment:       record.Note,
		}}, true
	case domain.ActionPriorityChange:
		return events.Event{Type: events.EventTicketPriorityChanged, Payload: events.TicketPriorityChangedPayload{
			OldPriority: record.OldPriority,
			NewPriority: record.NewPriority,
			Reason:      record.Note,
		}}, true
	case domain.ActionAssignmentChange:
		return events.Event{Type: events.EventTicketAssigned, Payload: events.TicketAssignedPayload{
			AssignedTo:   record.AssignedTo,
			AssigneeType: record.AssigneeType,
		}}, true
	case domain.ActionNote:
		return events.Event{Type: events.EventTicketNoteAdded, Payload: events.TicketNoteAddedPayload{
			NotePreview: preview(record.Note),
			PhotoCount:  len(record.Photos),
		}}, true
	}
	return events.Event{}, false
}

const previewLength = 140

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "…"
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.ToDomainError(err).Code
}

func nonEmptyStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
