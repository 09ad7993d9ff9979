package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/uptrace/bun"
)

type ItemRepository interface {
	Get(ctx context.Context, id string) (*trading.Item, error)
	List(ctx context.Context) ([]trading.Item, error)
	Upsert(ctx context.Context, item *models.Item) error
}

type itemRepository struct {
	db *bun.DB
}

func NewItemRepository(db *bun.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Get(ctx context.Context, id string) (*trading.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	m := new(models.Item)
	err := r.db.NewSelect().
		Model(m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: item %s", trading.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	item := itemFromModel(m)
	return &item, nil
}

func (r *itemRepository) List(ctx context.Context) ([]trading.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var ms []*models.Item
	if err := r.db.NewSelect().Model(&ms).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	out := make([]trading.Item, len(ms))
	for i, m := range ms {
		out[i] = itemFromModel(m)
	}
	return out, nil
}

func (r *itemRepository) Upsert(ctx context.Context, item *models.Item) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	_, err := r.db.NewInsert().
		Model(item).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("brand = EXCLUDED.brand").
		Set("icon = EXCLUDED.icon").
		Set("color = EXCLUDED.color").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}
