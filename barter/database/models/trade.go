package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OfferSingle = "single"
	OfferBundle = "bundle"
)

type TradeLine struct {
	ItemID string `json:"item_id"`
	Qty    int64  `json:"qty"`
}

// Trade stores the offer as a JSONB list of lines and flattens the request.
// RequestAny set means any bid is acceptable and RequestItemID, when set, is
// only the creator's preference.
type Trade struct {
	bun.BaseModel `bun:"table:trades,alias:t"`

	ID          string      `bun:"id,pk"`
	Type        string      `bun:"type,notnull"`
	Status      string      `bun:"status,notnull"`
	CreatorID   string      `bun:"creator_id,notnull"`
	CreatorName string      `bun:"creator_name,notnull"`
	TakerID     string      `bun:"taker_id,nullzero"`
	TakerName   string      `bun:"taker_name,nullzero"`
	OfferKind   string      `bun:"offer_kind,notnull"`
	OfferLines  []TradeLine `bun:"offer_lines,type:jsonb,notnull"`

	RequestAny    bool   `bun:"request_any,notnull,default:false"`
	RequestItemID string `bun:"request_item_id,nullzero"`
	RequestQty    int64  `bun:"request_qty,notnull,default:0"`

	CreatorConfirmed bool      `bun:"creator_confirmed,notnull,default:false"`
	TakerConfirmed   bool      `bun:"taker_confirmed,notnull,default:false"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
