package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	"github.com/utafrali/RestaurantPOS/pkg/database"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the ledger schema for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	insertPaymentSQL = `
		INSERT INTO payments (id, order_id, method, transaction_id, amount, currency, received, change_due, paid_by, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (transaction_id) DO NOTHING`

	insertReconciliationSQL = `
		INSERT INTO payment_reconciliations (id, order_id, transaction_id, method, amount, currency, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectReconciliationsSQL = `
		SELECT id, order_id, transaction_id, method, amount, currency, error, created_at, resolved_at
		FROM payment_reconciliations`

	resolveReconciliationSQL = `
		UPDATE payment_reconciliations
		SET resolved_at = $1
		WHERE id = $2 AND resolved_at IS NULL`
)

// LedgerRepository implements repository.LedgerRepository using PostgreSQL.
type LedgerRepository struct {
	db     database.DBTX
	tracer database.QueryTracer
}

var _ repository.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a PostgreSQL-backed payment ledger.
func NewLedgerRepository(db database.DBTX, tracer database.QueryTracer) *LedgerRepository {
	return &LedgerRepository{db: db, tracer: tracer}
}

// RecordPayment appends a settled payment. Recording the same transaction
// twice is a no-op.
func (r *LedgerRepository) RecordPayment(ctx context.Context, e *domain.LedgerEntry) (err error) {
	ctx, end := r.tracer.Start(ctx, "InsertPayment", insertPaymentSQL)
	defer func() { end(err) }()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err = r.db.Exec(ctx, insertPaymentSQL,
		e.ID,
		e.OrderID,
		e.Method,
		e.TransactionID,
		e.Amount,
		e.Currency,
		e.Received,
		e.Change,
		e.PaidBy,
		e.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// RecordReconciliation stores an authorization that could not be committed.
func (r *LedgerRepository) RecordReconciliation(ctx context.Context, rec *domain.Reconciliation) (err error) {
	ctx, end := r.tracer.Start(ctx, "InsertReconciliation", insertReconciliationSQL)
	defer func() { end(err) }()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err = r.db.Exec(ctx, insertReconciliationSQL,
		rec.ID,
		rec.OrderID,
		rec.TransactionID,
		rec.Method,
		rec.Amount,
		rec.Currency,
		rec.Error,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}

// ListReconciliations returns reconciliation rows, oldest first.
func (r *LedgerRepository) ListReconciliations(ctx context.Context, unresolvedOnly bool) (out []domain.Reconciliation, err error) {
	query := selectReconciliationsSQL
	if unresolvedOnly {
		query += "\n\t\tWHERE resolved_at IS NULL"
	}
	query += "\n\t\tORDER BY created_at"

	ctx, end := r.tracer.Start(ctx, "ListReconciliations", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.Reconciliation
		if err := rows.Scan(
			&rec.ID,
			&rec.OrderID,
			&rec.TransactionID,
			&rec.Method,
			&rec.Amount,
			&rec.Currency,
			&rec.Error,
			&rec.CreatedAt,
			&rec.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reconciliation row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliation rows: %w", err)
	}

	if out == nil {
		out = []domain.Reconciliation{}
	}
	return out, nil
}

// ResolveReconciliation marks an open reconciliation as handled.
func (r *LedgerRepository) ResolveReconciliation(ctx context.Context, id string) (err error) {
	ctx, end := r.tracer.Start(ctx, "ResolveReconciliation", resolveReconciliationSQL)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, resolveReconciliationSQL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("resolve reconciliation: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("open reconciliation", id)
	}
	return nil
}
