package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/database"
	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/uptrace/bun"
)

// InventoryRepository is the Postgres ledger. Credits are a single upsert;
// debits lock the row so that concurrent debits serialize on it.
type InventoryRepository interface {
	trading.Ledger
	ListHolders(ctx context.Context, itemID string) ([]*models.InventoryEntry, error)
}

type inventoryRepository struct {
	db  *bun.DB
	txm *database.TxManager
}

func NewInventoryRepository(db *bun.DB) InventoryRepository {
	return &inventoryRepository{db: db, txm: database.NewTxManager(db)}
}

func (r *inventoryRepository) Adjust(ctx context.Context, userID, itemID string, delta int64) (int64, error) {
	switch {
	case delta == 0:
		return r.Balance(ctx, userID, itemID)
	case delta > 0:
		return r.credit(ctx, userID, itemID, delta)
	default:
		return r.debit(ctx, userID, itemID, -delta)
	}
}

func (r *inventoryRepository) credit(ctx context.Context, userID, itemID string, qty int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	entry := &models.InventoryEntry{
		UserID:    userID,
		ItemID:    itemID,
		Quantity:  qty,
		UpdatedAt: time.Now(),
	}
	_, err := r.db.NewInsert().
		Model(entry).
		On("CONFLICT (user_id, item_id) DO UPDATE").
		Set("quantity = ie.quantity + EXCLUDED.quantity").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("quantity").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to credit inventory: %w", asStorageConflict(err))
	}
	return entry.Quantity, nil
}

func (r *inventoryRepository) debit(ctx context.Context, userID, itemID string, qty int64) (int64, error) {
	var balance int64
	err := r.txm.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		entry := new(models.InventoryEntry)
		err := tx.NewSelect().
			Model(entry).
			Where("user_id = ? AND item_id = ?", userID, itemID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &trading.InsufficientStockError{UserID: userID, ItemID: itemID, Need: qty}
			}
			return fmt.Errorf("failed to lock inventory entry: %w", err)
		}

		if entry.Quantity < qty {
			return &trading.InsufficientStockError{UserID: userID, ItemID: itemID, Have: entry.Quantity, Need: qty}
		}

		entry.Quantity -= qty
		entry.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().
			Model(entry).
			Column("quantity", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to debit inventory: %w", err)
		}
		balance = entry.Quantity
		return nil
	})
	err = asStorageConflict(err)
	if err != nil {
		if !errors.Is(err, trading.ErrInsufficientStock) {
			slog.Error("Inventory debit failed",
				slog.String("type", "db"),
				slog.String("user_id", userID),
				slog.String("item_id", itemID),
				slog.Int64("qty", qty),
				slog.Any("error", err))
		}
		return 0, err
	}
	return balance, nil
}

func (r *inventoryRepository) Balance(ctx context.Context, userID, itemID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	entry := new(models.InventoryEntry)
	err := r.db.NewSelect().
		Model(entry).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return entry.Quantity, nil
}

func (r *inventoryRepository) Balances(ctx context.Context, userID string) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var entries []*models.InventoryEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("user_id = ? AND quantity > 0", userID).
		Order("item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	out := make(map[string]int64, len(entries))
	for _, e := range entries {
		out[e.ItemID] = e.Quantity
	}
	return out, nil
}

func (r *inventoryRepository) Totals(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var rows []struct {
		ItemID string `bun:"item_id"`
		Total  int64  `bun:"total"`
	}
	err := r.db.NewSelect().
		Model((*models.InventoryEntry)(nil)).
		Column("item_id").
		ColumnExpr("SUM(quantity) AS total").
		Group("item_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to sum inventory: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Total
	}
	return out, nil
}

// ListHolders returns every user holding itemID, largest holder first.
func (r *inventoryRepository) ListHolders(ctx context.Context, itemID string) ([]*models.InventoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var entries []*models.InventoryEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("item_id = ? AND quantity > 0", itemID).
		Order("quantity DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list holders: %w", err)
	}
	return entries, nil
}
