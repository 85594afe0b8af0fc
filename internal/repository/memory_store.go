package repository

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

// MemoryTicketStore keeps tickets in process memory. It backs local runs
// without a database and the service tests.
type MemoryTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	feed    ChangeFeed
	logger  *zap.Logger
}

// NewMemoryTicketStore constructs an empty store publishing to feed.
func NewMemoryTicketStore(feed ChangeFeed, logger *zap.Logger) *MemoryTicketStore {
	if feed == nil {
		feed = NewLocalChangeFeed()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryTicketStore{tickets: map[string]*domain.Ticket{}, feed: feed, logger: logger}
}

func (s *MemoryTicketStore) Get(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return ticket.Clone(), nil
}

func (s *MemoryTicketStore) List(_ context.Context, query TicketQuery) ([]*domain.Ticket, error) {
	s.mu.Lock()
	out := make([]*domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if query.Matches(ticket.StoreCode) {
			out = append(out, ticket.Clone())
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryTicketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	if _, exists := s.tickets[ticket.ID]; exists {
		s.mu.Unlock()
		return apperrors.NewConflict("ticket already exists", map[string]any{"ticket_id": ticket.ID})
	}
	s.tickets[ticket.ID] = ticket.Clone()
	s.mu.Unlock()

	s.publish(ctx, ticket)
	return nil
}

func (s *MemoryTicketStore) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	s.mu.Lock()
	current, ok := s.tickets[id]
	if !ok {
		s.mu.Unlock()
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	next := current.Clone()
	applied, err := patch.Apply(next)
	if err != nil {
		s.mu.Unlock()
		return nil, apperrors.NewWriteConflict(id, err)
	}
	if applied {
		s.tickets[id] = next
	}
	result := next.Clone()
	s.mu.Unlock()

	if applied {
		s.publish(ctx, result)
	}
	return result, nil
}

func (s *MemoryTicketStore) Subscribe(ctx context.Context, query TicketQuery, fn SnapshotFunc) (Subscription, error) {
	return watch(ctx, s.feed, s.List, query, fn, s.logger), nil
}

func (s *MemoryTicketStore) publish(ctx context.Context, ticket *domain.Ticket) {
	if err := s.feed.Publish(ctx, Change{TicketID: ticket.ID, StoreCode: ticket.StoreCode}); err != nil {
		s.logger.Warn("publish change failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// MemoryCounterStore is an in-process CounterStore.
type MemoryCounterStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemoryCounterStore constructs an empty counter set.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{values: map[string]int64{}}
}

func (c *MemoryCounterStore) Increment(_ context.Context, path string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[path]++
	return c.values[path], nil
}

// MemoryVendorRepository serves a fixed vendor list.
type MemoryVendorRepository struct {
	mu      sync.RWMutex
	vendors []domain.Vendor
}

// NewMemoryVendorRepository constructs an empty vendor list.
func NewMemoryVendorRepository() *MemoryVendorRepository {
	return &MemoryVendorRepository{}
}

func (r *MemoryVendorRepository) List(_ context.Context) ([]domain.Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Vendor(nil), r.vendors...), nil
}

// Seed adds vendors whose id is not yet present.
func (r *MemoryVendorRepository) Seed(_ context.Context, vendors []domain.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	known := make(map[string]struct{}, len(r.vendors))
	for _, v := range r.vendors {
		known[v.ID] = struct{}{}
	}
	for _, v := range vendors {
		if _, ok := known[v.ID]; ok {
			continue
		}
		known[v.ID] = struct{}{}
		r.vendors = append(r.vendors, v)
	}
	sort.SliceStable(r.vendors, func(i, j int) bool { return r.vendors[i].Name < r.vendors[j].Name })
	return nil
}
