package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

type vendorRepository struct {
	pool *pgxpool.Pool
}

// NewVendorRepository instantiates the Postgres vendor list.
func NewVendorRepository(pool *pgxpool.Pool) VendorRepository {
	return &vendorRepository{pool: pool}
}

func (r *vendorRepository) List(ctx context.Context) ([]domain.Vendor, error) {
	const query = `SELECT id, name, areas, categories FROM vendors ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	defer rows.Close()

	var result []domain.Vendor
	for rows.Next() {
		var (
			vendor     domain.Vendor
			categories []string
		)
		if err := rows.Scan(&vendor.ID, &vendor.Name, &vendor.Areas, &categories); err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		for _, category := range categories {
			vendor.Categories = append(vendor.Categories, domain.TicketCategory(category))
		}
		result = append(result, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return result, nil
}

// Seed inserts vendors that are not yet present and leaves existing rows alone.
func (r *vendorRepository) Seed(ctx context.Context, vendors []domain.Vendor) error {
	const query = `
        INSERT INTO vendors (id, name, areas, categories)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT DO NOTHING`
	batch := &pgx.Batch{}
	for _, vendor := range vendors {
		categories := make([]string, 0, len(vendor.Categories))
		for _, category := range vendor.Categories {
			categories = append(categories, string(category))
		}
		areas := vendor.Areas
		if areas == nil {
			areas = []string{}
		}
		batch.Queue(query, vendor.ID, vendor.Name, areas, categories)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}
