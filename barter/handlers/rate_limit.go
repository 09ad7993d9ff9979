package handlers

import (
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

const maxTrackedUsers = 4096

// RateLimiter hands out one token bucket per user. Buckets of users who
// have gone quiet are evicted once maxTrackedUsers is reached.
type RateLimiter struct {
	users *lru.Cache
	rate  rate.Limit
	burst int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	users, _ := lru.New(maxTrackedUsers)
	return &RateLimiter{users: users, rate: r, burst: b}
}

func (rl *RateLimiter) GetLimiter(userID string) *rate.Limiter {
	if limiter, ok := rl.users.Get(userID); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	if existing, ok, _ := rl.users.PeekOrAdd(userID, limiter); ok {
		return existing.(*rate.Limiter)
	}
	return limiter
}

func (rl *RateLimiter) Allow(userID string) bool {
	return rl.GetLimiter(userID).Allow()
}

// WrapWithRateLimit rejects commands from users who exhausted their bucket.
func WrapWithRateLimit(rl *RateLimiter, name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !rl.Allow(e.User().ID.String()) {
			slog.Warn("Command rate limited",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.String("user_name", e.User().Username),
				slog.String("status", "limited"),
			)
			return e.CreateMessage(discord.MessageCreate{
				Content: "You're trading too fast. Wait a moment and try again.",
				Flags:   discord.MessageFlagEphemeral,
			})
		}
		return h(e)
	}
}
