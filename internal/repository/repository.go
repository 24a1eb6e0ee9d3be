package repository

import (
	"context"
	"time"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/pkg/pagination"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	Status *string
	pagination.Params
}

// OrderRepository persists orders. Each order is one record keyed by id, with
// secondary indexes by status and of parked orders.
type OrderRepository interface {
	// Create stores a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID returns domain.ErrOrderNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders newest first with the total match count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// ListParked returns parked orders, most recently parked first.
	ListParked(ctx context.Context, params pagination.Params) ([]domain.Order, int, error)

	// Update reads the order, applies fn and writes the result as one atomic
	// check-then-set. A concurrent writer makes the read stale and fn is
	// re-run against the fresh state. An error from fn aborts without writing.
	Update(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error)

	// LockPayment takes the per-order payment lock for ttl. It returns
	// domain.ErrPaymentInProgress if another attempt holds it.
	LockPayment(ctx context.Context, id string, ttl time.Duration) (unlock func(context.Context) error, err error)
}

// MenuRepository reads the catalog. Writes exist only for seeding.
type MenuRepository interface {
	GetItem(ctx context.Context, id string) (*domain.MenuItem, error)
	ListItems(ctx context.Context) ([]domain.MenuItem, error)
	SaveItem(ctx context.Context, item *domain.MenuItem) error
}

// LedgerRepository is the durable payment ledger.
type LedgerRepository interface {
	RecordPayment(ctx context.Context, e *domain.LedgerEntry) error
	RecordReconciliation(ctx context.Context, r *domain.Reconciliation) error
	ListReconciliations(ctx context.Context, unresolvedOnly bool) ([]domain.Reconciliation, error)
	ResolveReconciliation(ctx context.Context, id string) error
}
