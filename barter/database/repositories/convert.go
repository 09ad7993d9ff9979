package repositories

import (
	"errors"
	"fmt"

	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

func tradeToModel(t *trading.Trade) *models.Trade {
	m := &models.Trade{
		ID:               t.ID,
		Type:             string(t.Type),
		Status:           string(t.Status),
		CreatorID:        t.CreatorID,
		CreatorName:      t.CreatorName,
		TakerID:          t.TakerID,
		TakerName:        t.TakerName,
		CreatorConfirmed: t.CreatorConfirmed,
		TakerConfirmed:   t.TakerConfirmed,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}

	m.OfferKind = models.OfferSingle
	if _, ok := t.Offer.(trading.BundleOffer); ok {
		m.OfferKind = models.OfferBundle
	}
	for _, l := range t.Offer.Lines() {
		m.OfferLines = append(m.OfferLines, models.TradeLine{ItemID: l.ItemID, Qty: l.Qty})
	}

	switch r := t.Request.(type) {
	case trading.SpecificRequest:
		m.RequestItemID = r.ItemID
		m.RequestQty = r.Qty
	case trading.AnyRequest:
		m.RequestAny = true
		if r.Preferred != nil {
			m.RequestItemID = r.Preferred.ItemID
			m.RequestQty = r.Preferred.Qty
		}
	}
	return m
}

func tradeFromModel(m *models.Trade) (*trading.Trade, error) {
	t := &trading.Trade{
		ID:               m.ID,
		Type:             trading.Kind(m.Type),
		Status:           trading.Status(m.Status),
		CreatorID:        m.CreatorID,
		CreatorName:      m.CreatorName,
		TakerID:          m.TakerID,
		TakerName:        m.TakerName,
		CreatorConfirmed: m.CreatorConfirmed,
		TakerConfirmed:   m.TakerConfirmed,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	lines := make([]trading.Line, 0, len(m.OfferLines))
	for _, l := range m.OfferLines {
		lines = append(lines, trading.Line{ItemID: l.ItemID, Qty: l.Qty})
	}
	switch m.OfferKind {
	case models.OfferSingle:
		if len(lines) != 1 {
			return nil, fmt.Errorf("trade %s: single offer has %d lines", m.ID, len(lines))
		}
		t.Offer = trading.SingleOffer{Line: lines[0]}
	case models.OfferBundle:
		t.Offer = trading.BundleOffer{Items: lines}
	default:
		return nil, fmt.Errorf("trade %s: unknown offer kind %q", m.ID, m.OfferKind)
	}

	if m.RequestAny {
		req := trading.AnyRequest{}
		if m.RequestItemID != "" {
			req.Preferred = &trading.Line{ItemID: m.RequestItemID, Qty: m.RequestQty}
		}
		t.Request = req
	} else {
		t.Request = trading.SpecificRequest{Line: trading.Line{ItemID: m.RequestItemID, Qty: m.RequestQty}}
	}
	return t, nil
}

func tradesFromModels(ms []*models.Trade) ([]*trading.Trade, error) {
	out := make([]*trading.Trade, 0, len(ms))
	for _, m := range ms {
		t, err := tradeFromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func bidToModel(b *trading.Bid) *models.Bid {
	return &models.Bid{
		ID:         b.ID,
		TradeID:    b.TradeID,
		BidderID:   b.BidderID,
		BidderName: b.BidderName,
		ItemID:     b.ItemID,
		Qty:        b.Qty,
		CreatedAt:  b.CreatedAt,
	}
}

func bidFromModel(m *models.Bid) *trading.Bid {
	return &trading.Bid{
		ID:         m.ID,
		TradeID:    m.TradeID,
		BidderID:   m.BidderID,
		BidderName: m.BidderName,
		ItemID:     m.ItemID,
		Qty:        m.Qty,
		CreatedAt:  m.CreatedAt,
	}
}

func itemFromModel(m *models.Item) trading.Item {
	return trading.Item{
		ID:    m.ID,
		Name:  m.Name,
		Brand: m.Brand,
		Icon:  m.Icon,
		Color: m.Color,
	}
}

// isUniqueViolation reports whether err is a Postgres integrity violation.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.IntegrityViolation()
}

// Transient lock and serialization failures. A retry may succeed.
var conflictStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

func sqlState(err error) string {
	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return drvErr.Field('C')
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// asStorageConflict tags transient lock failures with ErrStorageConflict.
func asStorageConflict(err error) error {
	if err == nil || errors.Is(err, trading.ErrStorageConflict) {
		return err
	}
	if conflictStates[sqlState(err)] {
		return fmt.Errorf("%w: %w", trading.ErrStorageConflict, err)
	}
	return err
}
