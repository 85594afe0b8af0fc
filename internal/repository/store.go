package repository

import (
	"context"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
)

// TicketQuery selects tickets. An empty StoreCode matches every ticket.
type TicketQuery struct {
	StoreCode string
}

// Matches reports whether a ticket at storeCode falls inside the query.
func (q TicketQuery) Matches(storeCode string) bool {
	return q.StoreCode == "" || q.StoreCode == storeCode
}

// SnapshotFunc receives the full matching ticket set after every change.
type SnapshotFunc func(tickets []*domain.Ticket)

// Subscription is a live query handle. Unsubscribe must be called once the
// consumer goes away; calling it more than once is harmless. No snapshot is
// delivered after Unsubscribe returns, so it must not be called from inside
// the SnapshotFunc.
type Subscription interface {
	Unsubscribe()
}

// TicketStore persists ticket documents. Every Update applies its patch atomically.
type TicketStore interface {
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, query TicketQuery) ([]*domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error)
	Subscribe(ctx context.Context, query TicketQuery, fn SnapshotFunc) (Subscription, error)
}

// CounterStore hands out sequence numbers with an atomic increment-and-read.
type CounterStore interface {
	Increment(ctx context.Context, path string) (int64, error)
}

// VendorRepository reads the approved vendor list.
type VendorRepository interface {
	List(ctx context.Context) ([]domain.Vendor, error)
	Seed(ctx context.Context, vendors []domain.Vendor) error
}
