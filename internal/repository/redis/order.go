package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	"github.com/utafrali/RestaurantPOS/pkg/database"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
	"github.com/utafrali/RestaurantPOS/pkg/pagination"
)

const (
	orderKeyPrefix  = "order:"
	allOrdersKey    = "orders:index"
	statusKeyPrefix = "orders:status:"
	parkedKey       = "orders:parked"

	maxUpdateAttempts = 5
)

func orderKey(id string) string      { return orderKeyPrefix + id }
func statusKey(status string) string { return statusKeyPrefix + status }
func payLockKey(id string) string    { return orderKeyPrefix + id + ":paylock" }
func score(t time.Time) float64      { return float64(t.UnixMilli()) }

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// OrderRepository implements repository.OrderRepository using Redis.
type OrderRepository struct {
	client *redis.Client
	tracer database.QueryTracer
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a Redis-backed order repository.
func NewOrderRepository(client *redis.Client, tracer database.QueryTracer) *OrderRepository {
	tracer.System = "redis"
	return &OrderRepository{client: client, tracer: tracer}
}

// Create stores a new order and indexes it. An existing id is a conflict.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := r.tracer.Start(ctx, "CreateOrder", "SETNX "+orderKey(o.ID))
	defer func() { end(err) }()

	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	ok, err := r.client.SetNX(ctx, orderKey(o.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx order: %w", err)
	}
	if !ok {
		return apperrors.Conflict("order " + o.ID + " already exists")
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		indexPipe(ctx, pipe, o, "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis index order: %w", err)
	}
	return nil
}

// indexPipe queues index maintenance for o. prevStatus is "" for a new order.
func indexPipe(ctx context.Context, pipe redis.Pipeliner, o *domain.Order, prevStatus string) {
	created := redis.Z{Score: score(o.CreatedAt), Member: o.ID}
	if prevStatus == "" {
		pipe.ZAdd(ctx, allOrdersKey, created)
	}
	if prevStatus != o.Status {
		if prevStatus != "" {
			pipe.ZRem(ctx, statusKey(prevStatus), o.ID)
		}
		pipe.ZAdd(ctx, statusKey(o.Status), created)
	}
	if o.Status == domain.StatusParked && o.ParkedAt != nil {
		pipe.ZAdd(ctx, parkedKey, redis.Z{Score: score(*o.ParkedAt), Member: o.ID})
	} else {
		pipe.ZRem(ctx, parkedKey, o.ID)
	}
}

// GetByID retrieves an order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	ctx, end := r.tracer.Start(ctx, "GetOrder", "GET "+orderKey(id))
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.Errorf(domain.ErrOrderNotFound, "order "+id+" not found")
		}
		return nil, fmt.Errorf("redis get order: %w", err)
	}
	return decodeOrder(data)
}

func decodeOrder(data []byte) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &o, nil
}

// List returns orders newest first, optionally filtered by status.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	key := allOrdersKey
	if filter.Status != nil {
		key = statusKey(*filter.Status)
	}
	return r.page(ctx, "ListOrders", key, filter.Params)
}

// ListParked returns parked orders, most recently parked first.
func (r *OrderRepository) ListParked(ctx context.Context, params pagination.Params) ([]domain.Order, int, error) {
	return r.page(ctx, "ListParked", parkedKey, params)
}

func (r *OrderRepository) page(ctx context.Context, op, key string, params pagination.Params) (orders []domain.Order, total int, err error) {
	ctx, end := r.tracer.Start(ctx, op, "ZREVRANGE "+key)
	defer func() { end(err) }()

	count, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis zcard %s: %w", key, err)
	}
	start, stop := params.Range()
	ids, err := r.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis zrevrange %s: %w", key, err)
	}
	if len(ids) == 0 {
		return []domain.Order{}, int(count), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = orderKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("redis mget orders: %w", err)
	}

	orders = make([]domain.Order, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		o, err := decodeOrder([]byte(s))
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, int(count), nil
}

// Update implements repository.OrderRepository with WATCH/MULTI. The order
// key is watched, so a write by another session between our read and EXEC
// aborts the transaction and fn runs again on the new state.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(*domain.Order) error) (out *domain.Order, err error) {
	ctx, end := r.tracer.Start(ctx, "UpdateOrder", "WATCH "+orderKey(id))
	defer func() { end(err) }()

	key := orderKey(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.Errorf(domain.ErrOrderNotFound, "order "+id+" not found")
			}
			return fmt.Errorf("redis get order: %w", err)
		}
		o, err := decodeOrder(data)
		if err != nil {
			return err
		}
		prev := o.Status
		if err := fn(o); err != nil {
			return err
		}
		payload, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			indexPipe(ctx, pipe, o, prev)
			return nil
		})
		if err != nil {
			return err
		}
		out = o
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			if err != nil {
				return nil, err
			}
			return out, nil
		}
	}
	return nil, apperrors.Conflict("order " + id + " is being modified concurrently")
}

// LockPayment implements repository.OrderRepository with SET NX PX and a
// random token, released by a compare-and-delete script.
func (r *OrderRepository) LockPayment(ctx context.Context, id string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	key := payLockKey(id)

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire pay lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrPaymentInProgress
	}

	return func(ctx context.Context) error {
		if err := unlockScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis release pay lock: %w", err)
		}
		return nil
	}, nil
}
