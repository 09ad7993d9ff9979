package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/database/models"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/uptrace/bun"
)

// UserRepository also serves as the trading directory: Identify fails for
// unknown and frozen accounts.
type UserRepository interface {
	trading.Directory
	Register(ctx context.Context, discordID, username string) error
	GetByDiscordID(ctx context.Context, discordID string) (*models.User, error)
	SetFrozen(ctx context.Context, discordID string, frozen bool) error
	SetRole(ctx context.Context, discordID string, role models.UserRole) error
	IsAdmin(ctx context.Context, discordID string) (bool, error)
}

type userRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) UserRepository {
	return &userRepository{db: db}
}

// Register creates the user on first sight and keeps the username current.
func (r *userRepository) Register(ctx context.Context, discordID, username string) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	now := time.Now()
	user := &models.User{
		DiscordID: discordID,
		Username:  username,
		Role:      models.RoleUser,
		Joined:    now,
		UpdatedAt: now,
	}
	_, err := r.db.NewInsert().
		Model(user).
		On("CONFLICT (discord_id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: user %s", trading.ErrNotFound, discordID)
		}
		slog.Error("Database error when getting user",
			slog.String("type", "db"),
			slog.String("discord_id", discordID),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) Identify(ctx context.Context, userID string) (trading.Identity, error) {
	user, err := r.GetByDiscordID(ctx, userID)
	if err != nil {
		return trading.Identity{}, err
	}
	if user.Frozen {
		return trading.Identity{}, fmt.Errorf("%w: account %s is frozen", trading.ErrUnauthorized, userID)
	}
	return trading.Identity{ID: user.DiscordID, Name: user.Username}, nil
}

func (r *userRepository) SetFrozen(ctx context.Context, discordID string, frozen bool) error {
	return r.updateColumn(ctx, discordID, "frozen = ?", frozen)
}

func (r *userRepository) SetRole(ctx context.Context, discordID string, role models.UserRole) error {
	return r.updateColumn(ctx, discordID, "role = ?", role)
}

func (r *userRepository) updateColumn(ctx context.Context, discordID, set string, value interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, config.DefaultQueryTimeout)
	defer cancel()

	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set(set, value).
		Set("updated_at = ?", time.Now()).
		Where("discord_id = ?", discordID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", trading.ErrNotFound, discordID)
	}
	return nil
}

func (r *userRepository) IsAdmin(ctx context.Context, discordID string) (bool, error) {
	user, err := r.GetByDiscordID(ctx, discordID)
	if err != nil {
		if errors.Is(err, trading.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == models.RoleAdmin, nil
}
