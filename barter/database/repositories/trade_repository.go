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

type TradeRepository interface {
	trading.TradeStore
	CountByStatus(ctx context.Context) (map[trading.Status]int, error)
}

type tradeRepository struct {
	db  *bun.DB
	txm *database.TxManager
}

func NewTradeRepository(db *bun.DB) TradeRepository {
	return &tradeRepository{db: db, txm: database.NewTxManager(db)}
}

func (r *tradeRepository) Insert(ctx context.Context, trade *trading.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	if _, err := r.db.NewInsert().Model(tradeToModel(trade)).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: trade %s already exists", trading.ErrStorageConflict, trade.ID)
		}
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (r *tradeRepository) Get(ctx context.Context, id string) (*trading.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	m := new(models.Trade)
	err := r.db.NewSelect().
		Model(m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: trade %s", trading.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return tradeFromModel(m)
}

// Update locks the trade row for the length of the transaction, so two
// callers racing on the same trade see each other's writes.
func (r *tradeRepository) Update(ctx context.Context, id string, fn func(*trading.Trade) error) (*trading.Trade, error) {
	var updated *trading.Trade
	err := r.txm.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		m := new(models.Trade)
		err := tx.NewSelect().
			Model(m).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: trade %s", trading.ErrNotFound, id)
			}
			return fmt.Errorf("failed to lock trade: %w", err)
		}

		t, err := tradeFromModel(m)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = time.Now()
		}

		_, err = tx.NewUpdate().
			Model(tradeToModel(t)).
			Column("status", "taker_id", "taker_name",
				"request_any", "request_item_id", "request_qty",
				"creator_confirmed", "taker_confirmed", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update trade: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, asStorageConflict(err)
	}

	slog.Debug("Trade updated",
		slog.String("type", "db"),
		slog.String("trade_id", id),
		slog.String("status", string(updated.Status)))
	return updated, nil
}

func (r *tradeRepository) List(ctx context.Context, filter trading.TradeFilter) ([]*trading.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var ms []*models.Trade
	q := r.db.NewSelect().Model(&ms)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if filter.UserID != "" {
		q = q.Where("(creator_id = ? OR taker_id = ?)", filter.UserID, filter.UserID)
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return tradesFromModels(ms)
}

func (r *tradeRepository) CountByStatus(ctx context.Context) (map[trading.Status]int, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := r.db.NewSelect().
		Model((*models.Trade)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to count trades: %w", err)
	}

	out := make(map[trading.Status]int, len(rows))
	for _, row := range rows {
		out[trading.Status(row.Status)] = row.Count
	}
	return out, nil
}
