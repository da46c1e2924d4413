// Package sequence issues document numbers per (kind, period) key.
// Allocation is strictly increasing and duplicate-free under concurrent
// callers; an allocation whose surrounding operation later fails may leave a
// gap, which is acceptable.
package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Kind identifies the document family being numbered.
type Kind string

const (
	KindOrder    Kind = "ORD"
	KindQuote    Kind = "RFQ"
	KindSample   Kind = "SMP"
	KindInvoice  Kind = "INV"
	KindProforma Kind = "PRO"
)

// Allocator issues the next integer for a (kind, period) pair.
type Allocator interface {
	Next(ctx context.Context, kind Kind, periodKey string) (int64, error)
}

// PGAllocator backs the counters with a document_sequences table. The
// increment-or-create is a single atomic statement; two concurrent callers
// can never observe the same value.
type PGAllocator struct {
	pool *pgxpool.Pool
}

// NewPGAllocator constructs the postgres-backed allocator.
func NewPGAllocator(pool *pgxpool.Pool) *PGAllocator {
	return &PGAllocator{pool: pool}
}

// Next returns the next number for (kind, periodKey).
func (a *PGAllocator) Next(ctx context.Context, kind Kind, periodKey string) (int64, error) {
	var seq int64
	err := a.pool.QueryRow(ctx, `
		INSERT INTO document_sequences (kind, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, string(kind), periodKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s/%s: %w", kind, periodKey, err)
	}
	return seq, nil
}
