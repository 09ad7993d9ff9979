package models

import (
	"time"

	"github.com/uptrace/bun"
)

// InventoryEntry is one (user, item) balance. A missing row means zero.
type InventoryEntry struct {
	bun.BaseModel `bun:"table:inventory_entries,alias:ie"`

	UserID    string    `bun:"user_id,pk"`
	ItemID    string    `bun:"item_id,pk"`
	Quantity  int64     `bun:"quantity,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
