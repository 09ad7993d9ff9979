package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Item is a catalog entry. ID is a short slug such as "timtam".
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID        string    `bun:"id,pk" toml:"id"`
	Name      string    `bun:"name,notnull" toml:"name"`
	Brand     string    `bun:"brand" toml:"brand"`
	Icon      string    `bun:"icon" toml:"icon"`
	Color     string    `bun:"color" toml:"color"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" toml:"-"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" toml:"-"`
}
