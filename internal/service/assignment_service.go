package service

import (
	"context"
	"strings"

	"github.com/DossaniParadise/rm-tracker/internal/assignment"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/lifecycle"
	"github.com/DossaniParadise/rm-tracker/internal/repository"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tickets       *TicketService
	resolver      *assignment.Resolver
	vendors       repository.VendorRepository
	stores        StoreDirectory
	vendorEditors []string
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketService *TicketService
	Resolver      *assignment.Resolver
	VendorRepo    repository.VendorRepository
	Stores        StoreDirectory
	VendorEditors []string
}

// Assignees lists who may take a ticket at one store.
type Assignees struct {
	StoreCode        string              `json:"storeCode"`
	Zone             domain.Zone         `json:"zone"`
	Technicians      []domain.Technician `json:"technicians"`
	Vendors          []domain.Vendor     `json:"vendors"`
	CanAssign        bool                `json:"canAssign"`
	CanManageVendors bool                `json:"canManageVendors"`
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:       deps.TicketService,
		resolver:      deps.Resolver,
		vendors:       deps.VendorRepo,
		stores:        deps.Stores,
		vendorEditors: deps.VendorEditors,
	}
}

// AssignTicket assigns the ticket to a tagged assignee. Assigning an unassigned
// ticket advances it to assigned; an empty value unassigns it.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, assignee, mutationID string) (*domain.Ticket, error) {
	if !lifecycle.CanAssign(actor.Role) {
		return nil, apperrors.NewForbidden(string(actor.Role) + " may not assign tickets")
	}
	return s.tickets.UpdateTicket(ctx, actor, ticketID, TicketUpdateInput{
		MutationID: mutationID,
		Assignee:   &assignee,
	})
}

// EligibleAssignees returns the technicians serving the store's zone and the
// approved vendors, vendors for category first.
func (s *AssignmentService) EligibleAssignees(ctx context.Context, actor domain.Actor, storeCode string, category domain.TicketCategory) (*Assignees, error) {
	store, ok := s.stores.Store(strings.TrimSpace(storeCode))
	if !ok {
		return nil, apperrors.NewNotFound("store", map[string]any{"store_code": storeCode})
	}
	if !canAccessStore(actor, store.Code) {
		return nil, apperrors.NewForbidden("store is outside your scope")
	}
	vendors, err := s.vendors.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Assignees{
		StoreCode:        store.Code,
		Zone:             s.resolver.Zone(store.Code),
		Technicians:      s.resolver.EligibleTechnicians(store.Code),
		Vendors:          assignment.EligibleVendors(vendors, category),
		CanAssign:        lifecycle.CanAssign(actor.Role),
		CanManageVendors: assignment.CanManageVendors(actor, s.vendorEditors),
	}, nil
}
