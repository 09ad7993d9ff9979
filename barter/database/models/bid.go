package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Bid struct {
	bun.BaseModel `bun:"table:bids,alias:b"`

	ID         string    `bun:"id,pk"`
	TradeID    string    `bun:"trade_id,notnull"`
	BidderID   string    `bun:"bidder_id,notnull"`
	BidderName string    `bun:"bidder_name,notnull"`
	ItemID     string    `bun:"item_id,notnull"`
	Qty        int64     `bun:"qty,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`

	Trade *Trade `bun:"rel:belongs-to,join:trade_id=id"`
}
