package customers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nirmaan-commerce/nirmaan/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, tier, gstin, state_code, is_active, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id)

	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Tier, &c.GSTIN, &c.StateCode, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFound("customer_not_found", "customer not found")
		}
		return nil, err
	}
	return &c, nil
}
