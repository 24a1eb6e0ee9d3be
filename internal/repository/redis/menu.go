package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/RestaurantPOS/internal/domain"
	"github.com/utafrali/RestaurantPOS/internal/repository"
	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
)

const (
	itemKeyPrefix = "item:"
	itemsKey      = "items"
)

// MenuRepository implements repository.MenuRepository using Redis.
type MenuRepository struct {
	client *redis.Client
}

var _ repository.MenuRepository = (*MenuRepository)(nil)

// NewMenuRepository creates a Redis-backed catalog reader.
func NewMenuRepository(client *redis.Client) *MenuRepository {
	return &MenuRepository{client: client}
}

// GetItem retrieves a menu item by id.
func (r *MenuRepository) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	data, err := r.client.Get(ctx, itemKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.Errorf(domain.ErrItemNotFound, "menu item "+id+" not found")
		}
		return nil, fmt.Errorf("redis get item: %w", err)
	}

	var item domain.MenuItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &item, nil
}

// ListItems returns the whole catalog ordered by id.
func (r *MenuRepository) ListItems(ctx context.Context) ([]domain.MenuItem, error) {
	ids, err := r.client.SMembers(ctx, itemsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers items: %w", err)
	}
	sort.Strings(ids)

	items := make([]domain.MenuItem, 0, len(ids))
	for _, id := range ids {
		item, err := r.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// SaveItem writes a catalog entry.
func (r *MenuRepository) SaveItem(ctx context.Context, item *domain.MenuItem) error {
	if !item.Valid() {
		return apperrors.InvalidInput("menu item " + item.ID + " is invalid")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKeyPrefix+item.ID, data, 0)
		pipe.SAdd(ctx, itemsKey, item.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save item: %w", err)
	}
	return nil
}

// Seed writes items when the catalog is empty and reports how many it wrote.
func (r *MenuRepository) Seed(ctx context.Context, items []domain.MenuItem) (int, error) {
	n, err := r.client.SCard(ctx, itemsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis scard items: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	for i := range items {
		if err := r.SaveItem(ctx, &items[i]); err != nil {
			return i, err
		}
	}
	return len(items), nil
}
