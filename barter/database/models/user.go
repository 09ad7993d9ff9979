package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	DiscordID string    `bun:"discord_id,pk"`
	Username  string    `bun:"username,notnull"`
	Role      UserRole  `bun:"role,notnull,default:'USER'"`
	Frozen    bool      `bun:"frozen,notnull,default:false"`
	Joined    time.Time `bun:"joined,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
