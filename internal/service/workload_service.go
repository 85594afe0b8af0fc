package service

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/projector"
	"github.com/DossaniParadise/rm-tracker/internal/repository"
)

// WorkloadService serves the map dashboard and the notification centre.
type WorkloadService struct {
	tickets repository.TicketStore
	stores  StoreDirectory
	routing domain.NotifyRouting
	logger  *zap.Logger
}

// WorkloadDependencies bundles collaborators.
type WorkloadDependencies struct {
	TicketStore repository.TicketStore
	Stores      StoreDirectory
	Routing     domain.NotifyRouting
	Logger      *zap.Logger
}

// StoreWorkload is one map marker.
type StoreWorkload struct {
	Store  domain.Store           `json:"store"`
	Counts projector.StoreCounts `json:"counts"`
	Marker projector.Marker      `json:"marker"`
}

// NewWorkloadService creates the service.
func NewWorkloadService(deps WorkloadDependencies) *WorkloadService {
	s := &WorkloadService{
		tickets: deps.TicketStore,
		stores:  deps.Stores,
		routing: deps.Routing,
		logger:  deps.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Workload returns counts and markers for every store in the actor's scope.
func (s *WorkloadService) Workload(ctx context.Context, actor domain.Actor) ([]StoreWorkload, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketQuery{})
	if err != nil {
		return nil, err
	}
	return s.project(actor, tickets), nil
}

func (s *WorkloadService) project(actor domain.Actor, tickets []*domain.Ticket) []StoreWorkload {
	scope := actor.Stores
	if actor.SeesAllStores() {
		scope = domain.AllStores()
	}
	stores := s.stores.StoresFor(scope)
	codes := make([]string, 0, len(stores))
	for _, store := range stores {
		codes = append(codes, store.Code)
	}
	counts := projector.CountByStore(tickets, codes)

	out := make([]StoreWorkload, 0, len(stores))
	for _, store := range stores {
		c := counts[store.Code]
		out = append(out, StoreWorkload{Store: store, Counts: c, Marker: projector.MarkerFor(c)})
	}
	return out
}

// Notifications returns the open tickets the actor should act on, most pressing first.
func (s *WorkloadService) Notifications(ctx context.Context, actor domain.Actor) ([]*domain.Ticket, error) {
	tickets, err := s.tickets.List(ctx, repository.TicketQuery{})
	if err != nil {
		return nil, err
	}
	return projector.VisibleTicketsFor(actor, tickets, s.routing), nil
}

// WatchNotifications calls fn with the actor's notification list now and
// whenever it changes. The returned subscription must be released with Unsubscribe.
func (s *WorkloadService) WatchNotifications(ctx context.Context, actor domain.Actor, fn func([]*domain.Ticket)) (repository.Subscription, error) {
	cache := &notificationCache{}
	return s.tickets.Subscribe(ctx, repository.TicketQuery{}, func(tickets []*domain.Ticket) {
		visible := projector.VisibleTicketsFor(actor, tickets, s.routing)
		if !cache.swap(visible) {
			return
		}
		fn(visible)
	})
}

// notificationCache remembers the last delivered list so unchanged snapshots are not re-sent.
type notificationCache struct {
	mu   sync.Mutex
	last []string
	seen bool
}

func (c *notificationCache) swap(tickets []*domain.Ticket) bool {
	keys := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		keys = append(keys, fingerprint(ticket))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen && slices.Equal(c.last, keys) {
		return false
	}
	c.last = keys
	c.seen = true
	return true
}

func fingerprint(ticket *domain.Ticket) string {
	return ticket.ID + "|" + string(ticket.Status) + "|" + string(ticket.Priority) + "|" + ticket.AssignedTo + "|" + strconv.FormatInt(ticket.UpdatedAt, 10)
}
