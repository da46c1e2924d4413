package outbox

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads and settles outbox records.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs the store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ClaimPending returns up to limit pending records, bumping their attempt
// count. SKIP LOCKED keeps concurrent dispatchers from claiming the same
// record.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE outbox SET attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM outbox
			WHERE status = $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, status, attempts, created_at
	`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: claim pending: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Payload, &rec.Status, &rec.Attempts, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkDone settles a successfully handed-off record.
func (s *Store) MarkDone(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status = $2 WHERE id = $1`, rec.ID, StatusDone)
	return err
}

// Requeue leaves the record pending for another sweep, parking it as FAILED
// once the attempt budget is spent.
func (s *Store) Requeue(ctx context.Context, rec Record) error {
	status := StatusPending
	if rec.Attempts >= maxAttempts {
		status = StatusFailed
	}
	_, err := s.pool.Exec(ctx, `UPDATE outbox SET status = $2 WHERE id = $1`, rec.ID, status)
	return err
}
