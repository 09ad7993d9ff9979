package trading

import (
	"context"
	"fmt"
	"sort"
)

// ItemAudit splits the units of one item between free balances and the
// reservations held by trades and bids.
type ItemAudit struct {
	ItemID   string
	Balances int64
	Offers   int64
	Payments int64
	Bids     int64
}

// Total is every unit of the item that exists.
func (a ItemAudit) Total() int64 {
	return a.Balances + a.Offers + a.Payments + a.Bids
}

type AuditReport struct {
	Items []ItemAudit
}

func (r *AuditReport) Item(itemID string) ItemAudit {
	for _, a := range r.Items {
		if a.ItemID == itemID {
			return a
		}
	}
	return ItemAudit{ItemID: itemID}
}

// Audit totals every unit the system holds. Outside of in-flight
// operations, Total per item only changes through AdjustInventory.
func (m *Manager) Audit(ctx context.Context) (*AuditReport, error) {
	totals, err := m.ledger.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to total balances: %w", err)
	}
	live, err := m.trades.List(ctx, TradeFilter{Statuses: []Status{StatusOpen, StatusPending}})
	if err != nil {
		return nil, fmt.Errorf("failed to list live trades: %w", err)
	}

	byItem := make(map[string]*ItemAudit)
	get := func(id string) *ItemAudit {
		a, ok := byItem[id]
		if !ok {
			a = &ItemAudit{ItemID: id}
			byItem[id] = a
		}
		return a
	}

	for id, qty := range totals {
		get(id).Balances += qty
	}
	for _, t := range live {
		for _, l := range t.Offer.Lines() {
			get(l.ItemID).Offers += l.Qty
		}
		if t.Status == StatusPending {
			if req, ok := t.Request.(SpecificRequest); ok {
				get(req.ItemID).Payments += req.Qty
			}
			continue
		}
		if t.Type != KindAuction {
			continue
		}
		bids, err := m.bids.ListForTrade(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list bids for %s: %w", t.ID, err)
		}
		for _, b := range bids {
			get(b.ItemID).Bids += b.Qty
		}
	}

	report := &AuditReport{Items: make([]ItemAudit, 0, len(byItem))}
	for _, a := range byItem {
		report.Items = append(report.Items, *a)
	}
	sort.Slice(report.Items, func(i, j int) bool { return report.Items[i].ItemID < report.Items[j].ItemID })
	return report, nil
}
