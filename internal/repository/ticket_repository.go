package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

type ticketRepository struct {
	pool   *pgxpool.Pool
	feed   ChangeFeed
	logger *zap.Logger
}

// NewTicketRepository instantiates the Postgres-backed ticket store.
func NewTicketRepository(pool *pgxpool.Pool, feed ChangeFeed, logger *zap.Logger) TicketStore {
	return &ticketRepository{pool: pool, feed: feed, logger: logger}
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT doc FROM tickets WHERE id=$1`
	var raw []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	ticket, err := domain.DecodeTicket(raw)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, q TicketQuery) ([]*domain.Ticket, error) {
	query := `SELECT doc FROM tickets ORDER BY updated_at DESC, id`
	args := []any{}
	if q.StoreCode != "" {
		query = `SELECT doc FROM tickets WHERE store_code=$1 ORDER BY updated_at DESC, id`
		args = append(args, q.StoreCode)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, store_code, doc, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO NOTHING`
	doc, err := domain.EncodeTicket(ticket)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	cmd, err := r.pool.Exec(ctx, query, ticket.ID, ticket.StoreCode, doc, ticket.CreatedAt, ticket.UpdatedAt)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewConflict("ticket already exists", map[string]any{"ticket_id": ticket.ID})
	}
	r.publish(ctx, ticket)
	return nil
}

// Update locks the document row, applies the patch and writes it back in one transaction.
func (r *ticketRepository) Update(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT doc FROM tickets WHERE id=$1 FOR UPDATE`, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}
	ticket, err := domain.DecodeTicket(raw)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	applied, err := patch.Apply(ticket)
	if err != nil {
		return nil, apperrors.NewWriteConflict(id, err)
	}
	if !applied {
		return ticket, nil
	}

	doc, err := domain.EncodeTicket(ticket)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE tickets SET doc=$2, updated_at=$3 WHERE id=$1`, id, doc, ticket.UpdatedAt); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	r.publish(ctx, ticket)
	return ticket, nil
}

func (r *ticketRepository) Subscribe(ctx context.Context, q TicketQuery, fn SnapshotFunc) (Subscription, error) {
	return watch(ctx, r.feed, r.List, q, fn, r.logger), nil
}

func (r *ticketRepository) publish(ctx context.Context, ticket *domain.Ticket) {
	if err := r.feed.Publish(ctx, Change{TicketID: ticket.ID, StoreCode: ticket.StoreCode}); err != nil {
		r.logger.Warn("publish change failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func scanTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	var result []*domain.Ticket
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		ticket, err := domain.DecodeTicket(raw)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return result, nil
}
