// Package outbox persists post-commit intents (notifications, automatic
// invoice generation) in the same transaction as the state change that
// produced them, and drains them asynchronously with retry. A dropped
// intent is a retry, never a rolled-back order.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Record kinds understood by the worker.
const (
	KindOrderCreated    = "order.created"
	KindOrderStatus     = "order.status"
	KindQuoteCreated    = "quote.created"
	KindQuoteStatus     = "quote.status"
	KindPaymentReceived = "payment.received"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusDone    Status = "DONE"
	StatusFailed  Status = "FAILED"
)

// maxAttempts before a record is parked as FAILED for manual inspection.
const maxAttempts = 10

// Record is one persisted intent.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord marshals payload into a pending record.
func NewRecord(kind string, payload any) (Record, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: uuid.New(), Kind: kind, Payload: data, Status: StatusPending, CreatedAt: time.Now().UTC()}, nil
}

// dbtx is satisfied by pgx pools and transactions.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// AppendTx inserts the record using the caller's transaction so the intent
// commits or rolls back together with the domain change.
func AppendTx(ctx context.Context, tx dbtx, rec Record) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, kind, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.Kind, rec.Payload, rec.Status, rec.Attempts, rec.CreatedAt)
	return err
}
