package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	"github.com/utafrali/RestaurantPOS/pkg/database"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	"github.com/utafrali/RestaurantPOS/pkg/pagination"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func newOrderRepo(t *testing.T) (*OrderRepository, *miniredis.Miniredis) {
	t.Helper()
	client, mr := setupTestRedis(t)
	return NewOrderRepository(client, database.QueryTracer{}), mr
}

func sampleOrder(id string, created time.Time) *domain.Order {
	return &domain.Order{
		ID:        id,
		Status:    domain.StatusDraft,
		OrderType: domain.OrderTypeTakeaway,
		Lines: []domain.Line{
			{ItemID: "ITEM001", Name: "Margherita Pizza", UnitPrice: 1299, Quantity: 1},
		},
		Currency:    "USD",
		Subtotal:    1299,
		TotalAmount: 1299,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// ---------------------------------------------------------------------------
// Create / Get
// ---------------------------------------------------------------------------

func TestOrderRepository_CreateAndGet(t *testing.T) {
	repo, mr := newOrderRepo(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", now)))
	assert.True(t, mr.Exists("order:o-1"))

	got, err := repo.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(1299), got.Lines[0].UnitPrice)

	members, err := mr.ZMembers("orders:status:draft")
	require.NoError(t, err)
	assert.Equal(t, []string{"o-1"}, members)
}

func TestOrderRepository_Create_Duplicate(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", now)))
	err := repo.Create(ctx, sampleOrder("o-1", now))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestOrderRepository_Get_NotFound(t *testing.T) {
	repo, _ := newOrderRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestOrderRepository_List_NewestFirstAndFiltered(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"o-1", "o-2", "o-3"} {
		require.NoError(t, repo.Create(ctx, sampleOrder(id, base.Add(time.Duration(i)*time.Minute))))
	}
	_, err := repo.Update(ctx, "o-2", func(o *domain.Order) error {
		return o.Cancel("customer left", base.Add(time.Hour))
	})
	require.NoError(t, err)

	orders, total, err := repo.List(ctx, repository.OrderFilter{Params: pagination.Params{Page: 1, PerPage: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o-3", orders[0].ID)
	assert.Equal(t, "o-2", orders[1].ID)

	status := domain.StatusDraft
	orders, total, err = repo.List(ctx, repository.OrderFilter{Status: &status, Params: pagination.DefaultParams()})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, orders, 2)
	assert.Equal(t, "o-3", orders[0].ID)
	assert.Equal(t, "o-1", orders[1].ID)
}

func TestOrderRepository_List_Empty(t *testing.T) {
	repo, _ := newOrderRepo(t)

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{Params: pagination.DefaultParams()})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderRepository_ListParked(t *testing.T) {
	repo, mr := newOrderRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", base)))
	require.NoError(t, repo.Create(ctx, sampleOrder("o-2", base)))

	for i, id := range []string{"o-2", "o-1"} {
		parkedAt := base.Add(time.Duration(i+1) * time.Minute)
		_, err := repo.Update(ctx, id, func(o *domain.Order) error { return o.Park("cashier-1", parkedAt) })
		require.NoError(t, err)
	}

	parked, total, err := repo.ListParked(ctx, pagination.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, parked, 2)
	assert.Equal(t, "o-1", parked[0].ID)

	_, err = repo.Update(ctx, "o-1", func(o *domain.Order) error { return o.Resume(base.Add(time.Hour)) })
	require.NoError(t, err)

	members, err := mr.ZMembers("orders:parked")
	require.NoError(t, err)
	assert.Equal(t, []string{"o-2"}, members)

	draft, err := mr.ZMembers("orders:status:draft")
	require.NoError(t, err)
	assert.Equal(t, []string{"o-1"}, draft)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestOrderRepository_Update_FnErrorLeavesOrderUntouched(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", time.Now().UTC())))

	boom := errors.New("boom")
	_, err := repo.Update(ctx, "o-1", func(o *domain.Order) error {
		o.Status = domain.StatusCancelled
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)
}

func TestOrderRepository_Update_NotFound(t *testing.T) {
	repo, _ := newOrderRepo(t)

	_, err := repo.Update(context.Background(), "missing", func(*domain.Order) error { return nil })
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_Update_ConcurrentMarkPaid(t *testing.T) {
	repo, _ := newOrderRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, sampleOrder("o-1", time.Now().UTC())))

	const workers = 8
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "o-1", func(o *domain.Order) error {
				return o.MarkPaid(domain.Payment{Method: "cash", Amount: 1299}, time.Now().UTC())
			})
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.True(t, errors.Is(err, domain.ErrAlreadyPaid) || errors.Is(err, apperrors.ErrConflict), err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	got, err := repo.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, got.Status)
}

// ---------------------------------------------------------------------------
// LockPayment
// ---------------------------------------------------------------------------

func TestOrderRepository_LockPayment(t *testing.T) {
	repo, mr := newOrderRepo(t)
	ctx := context.Background()

	unlock, err := repo.LockPayment(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("order:o-1:paylock"))

	_, err = repo.LockPayment(ctx, "o-1", time.Minute)
	assert.ErrorIs(t, err, domain.ErrPaymentInProgress)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("order:o-1:paylock"))

	unlock2, err := repo.LockPayment(ctx, "o-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestOrderRepository_LockPayment_ExpiredLockNotStolen(t *testing.T) {
	repo, mr := newOrderRepo(t)
	ctx := context.Background()

	unlock, err := repo.LockPayment(ctx, "o-1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	_, err = repo.LockPayment(ctx, "o-1", time.Minute)
	require.NoError(t, err)

	// The stale holder must not release the new holder's lock.
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("order:o-1:paylock"))
}
