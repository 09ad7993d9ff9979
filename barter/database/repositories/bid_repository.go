package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/database"
	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/uptrace/bun"
)

type BidRepository interface {
	trading.BidStore
	ListForBidder(ctx context.Context, bidderID string) ([]*trading.Bid, error)
}

type bidRepository struct {
	db  *bun.DB
	txm *database.TxManager
}

func NewBidRepository(db *bun.DB) BidRepository {
	return &bidRepository{db: db, txm: database.NewTxManager(db)}
}

// Insert holds a share lock on the trade row while the bid is written, so
// a concurrent cancel or accept either sees the bid or the bid is refused.
func (r *bidRepository) Insert(ctx context.Context, bid *trading.Bid) error {
	err := r.txm.WithTransaction(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		t := new(models.Trade)
		err := tx.NewSelect().
			Model(t).
			Column("id", "type", "status").
			Where("id = ?", bid.TradeID).
			For("SHARE").
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: trade %s", trading.ErrNotFound, bid.TradeID)
			}
			return fmt.Errorf("failed to lock trade: %w", err)
		}
		if t.Type != string(trading.KindAuction) || t.Status != string(trading.StatusOpen) {
			return fmt.Errorf("%w: trade %s no longer takes bids", trading.ErrInvalidState, t.ID)
		}

		if _, err := tx.NewInsert().Model(bidToModel(bid)).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: bid %s already exists", trading.ErrStorageConflict, bid.ID)
			}
			return fmt.Errorf("failed to create bid: %w", err)
		}
		return nil
	})
	return asStorageConflict(err)
}

func (r *bidRepository) Get(ctx context.Context, id string) (*trading.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	m := new(models.Bid)
	err := r.db.NewSelect().
		Model(m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: bid %s", trading.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	return bidFromModel(m), nil
}

func (r *bidRepository) ListForTrade(ctx context.Context, tradeID string) ([]*trading.Bid, error) {
	return r.list(ctx, "trade_id = ?", tradeID)
}

func (r *bidRepository) ListForBidder(ctx context.Context, bidderID string) ([]*trading.Bid, error) {
	return r.list(ctx, "bidder_id = ?", bidderID)
}

func (r *bidRepository) list(ctx context.Context, where string, arg string) ([]*trading.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	var ms []*models.Bid
	err := r.db.NewSelect().
		Model(&ms).
		Where(where, arg).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}

	out := make([]*trading.Bid, len(ms))
	for i, m := range ms {
		out[i] = bidFromModel(m)
	}
	return out, nil
}

// Delete reports whether this call removed the row. Callers refund only
// when it did.
func (r *bidRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.NewDelete().
		Model((*models.Bid)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete bid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}
