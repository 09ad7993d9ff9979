package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

const (
	autocompleteTimeout = 2 * time.Second
	maxChoiceLen        = 100
)

// choiceSource lists the choices for one option given what has been typed.
type choiceSource func(ctx context.Context, e *handler.AutocompleteEvent, typed string) ([]discord.AutocompleteChoice, error)

// Autocomplete dispatches on the focused option. Options without a source
// get no suggestions.
func Autocomplete(sources map[string]choiceSource) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic in autocomplete handler",
					slog.String("type", "cmd"),
					slog.Any("panic", r),
					slog.String("stack_trace", string(debug.Stack())),
				)
			}
		}()

		focused := e.Data.Focused()
		source, ok := sources[focused.Name]
		if !ok {
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}

		typed := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err != nil {
				slog.Error("Failed to unmarshal focused.Value",
					slog.String("type", "cmd"),
					slog.String("option", focused.Name),
					slog.Any("error", err))
				return e.AutocompleteResult([]discord.AutocompleteChoice{})
			}
			typed = s
		}

		ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
		defer cancel()

		choices, err := source(ctx, e, typed)
		if err != nil {
			slog.Error("Failed to build autocomplete choices",
				slog.String("type", "cmd"),
				slog.String("option", focused.Name),
				slog.String("search_term", typed),
				slog.Any("error", err))
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}
		if len(choices) > config.MaxAutocompleteChoices {
			choices = choices[:config.MaxAutocompleteChoices]
		}
		return e.AutocompleteResult(choices)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxChoiceLen {
		return s
	}
	return string(r[:maxChoiceLen-1]) + "…"
}

func itemChoices(b *barter.Bot) choiceSource {
	return func(ctx context.Context, _ *handler.AutocompleteEvent, typed string) ([]discord.AutocompleteChoice, error) {
		items, err := b.Catalog.Search(ctx, typed, config.MaxAutocompleteChoices)
		if err != nil {
			return nil, err
		}
		choices := make([]discord.AutocompleteChoice, 0, len(items))
		for _, it := range items {
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  truncate(strings.TrimSpace(it.Icon + " " + it.Name)),
				Value: it.ID,
			})
		}
		return choices, nil
	}
}

// offerChoices completes the entry being typed in a comma separated offer
// and keeps the entries before it.
func offerChoices(b *barter.Bot) choiceSource {
	return func(ctx context.Context, _ *handler.AutocompleteEvent, typed string) ([]discord.AutocompleteChoice, error) {
		prefix, current := lastSegment(typed)
		name, qty, hasQty := strings.Cut(current, ":")

		items, err := b.Catalog.Search(ctx, name, config.MaxAutocompleteChoices)
		if err != nil {
			return nil, err
		}
		choices := make([]discord.AutocompleteChoice, 0, len(items))
		for _, it := range items {
			entry := it.ID
			if hasQty {
				entry += ":" + strings.TrimSpace(qty)
			}
			value := prefix + entry
			if len(value) > maxChoiceLen {
				continue
			}
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  truncate(prefix + it.Name + strings.TrimPrefix(entry, it.ID)),
				Value: value,
			})
		}
		return choices, nil
	}
}

// tradeScope lists the trades a user may pick for a given subcommand.
type tradeScope func(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error)

func openFixedTrades(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error) {
	return openTrades(ctx, b, func(t *trading.Trade) bool {
		return t.Type == trading.KindFixed && t.CreatorID != userID
	})
}

func openAuctions(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error) {
	return openTrades(ctx, b, func(t *trading.Trade) bool {
		return t.Type == trading.KindAuction && t.CreatorID != userID
	})
}

func anyOpenAuction(ctx context.Context, b *barter.Bot, _ string) ([]*trading.Trade, error) {
	return openTrades(ctx, b, func(t *trading.Trade) bool {
		return t.Type == trading.KindAuction
	})
}

func openTrades(ctx context.Context, b *barter.Bot, keep func(*trading.Trade) bool) ([]*trading.Trade, error) {
	trades, err := b.Trades.ListOpenTrades(ctx)
	if err != nil {
		return nil, err
	}
	out := trades[:0]
	for _, t := range trades {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func myAuctions(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error) {
	trades, err := b.TradeRepository.List(ctx, trading.TradeFilter{
		Statuses: []trading.Status{trading.StatusOpen},
		UserID:   userID,
	})
	if err != nil {
		return nil, err
	}
	out := trades[:0]
	for _, t := range trades {
		if t.Type == trading.KindAuction && t.CreatorID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func myPendingTrades(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error) {
	return b.TradeRepository.List(ctx, trading.TradeFilter{
		Statuses: []trading.Status{trading.StatusPending},
		UserID:   userID,
	})
}

func myLiveTrades(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error) {
	trades, err := b.TradeRepository.List(ctx, trading.TradeFilter{
		Statuses: []trading.Status{trading.StatusOpen},
		UserID:   userID,
	})
	if err != nil {
		return nil, err
	}
	out := trades[:0]
	for _, t := range trades {
		if t.CreatorID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

// anyVisibleTrade is every open trade plus everything the user took part in.
func anyVisibleTrade(ctx context.Context, b *barter.Bot, userID string) ([]*trading.Trade, error) {
	open, err := b.Trades.ListOpenTrades(ctx)
	if err != nil {
		return nil, err
	}
	mine, err := b.TradeRepository.List(ctx, trading.TradeFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(open)+len(mine))
	out := make([]*trading.Trade, 0, len(open)+len(mine))
	for _, t := range append(mine, open...) {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

func tradeChoices(b *barter.Bot, scope tradeScope) choiceSource {
	return func(ctx context.Context, e *handler.AutocompleteEvent, typed string) ([]discord.AutocompleteChoice, error) {
		trades, err := scope(ctx, b, e.User().ID.String())
		if err != nil {
			return nil, err
		}

		names := catalogNames(ctx, b.Catalog)
		typed = strings.ToLower(strings.TrimSpace(typed))
		choices := make([]discord.AutocompleteChoice, 0, min(len(trades), config.MaxAutocompleteChoices))
		for _, t := range trades {
			label := plainTradeLabel(t, names)
			if typed != "" && !strings.HasPrefix(t.ID, typed) && !strings.Contains(strings.ToLower(label), typed) {
				continue
			}
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  truncate(label),
				Value: t.ID,
			})
			if len(choices) == config.MaxAutocompleteChoices {
				break
			}
		}
		return choices, nil
	}
}

// plainTradeLabel is tradeSummary without markdown, for choice names.
func plainTradeLabel(t *trading.Trade, names NameFunc) string {
	return fmt.Sprintf("%s %s by %s: %s for %s",
		shortID(t.ID), strings.ToLower(string(t.Type)), t.CreatorName,
		describeLines(t.Offer.Lines(), names), describeRequest(t.Request, names))
}

func bidChoices(b *barter.Bot) choiceSource {
	return func(ctx context.Context, e *handler.AutocompleteEvent, typed string) ([]discord.AutocompleteChoice, error) {
		tradeID, ok := e.Data.OptString("trade_id")
		if !ok || tradeID == "" {
			return nil, nil
		}
		bids, err := b.Trades.ListBidsForTrade(ctx, tradeID)
		if err != nil {
			if errors.Is(err, trading.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}

		names := catalogNames(ctx, b.Catalog)
		typed = strings.ToLower(strings.TrimSpace(typed))
		choices := make([]discord.AutocompleteChoice, 0, len(bids))
		for _, bid := range bids {
			label := fmt.Sprintf("%s %s bids %s", shortID(bid.ID), bid.BidderName,
				describeLines([]trading.Line{bid.Line()}, names))
			if typed != "" && !strings.HasPrefix(bid.ID, typed) && !strings.Contains(strings.ToLower(label), typed) {
				continue
			}
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  truncate(label),
				Value: bid.ID,
			})
		}
		return choices, nil
	}
}

// registerUser records the caller so the trading directory can identify
// them, and returns their id.
func registerUser(ctx context.Context, b *barter.Bot, e *handler.CommandEvent) (string, error) {
	userID := e.User().ID.String()
	if err := b.UserRepository.Register(ctx, userID, e.User().Username); err != nil {
		return "", err
	}
	return userID, nil
}

// resolveTradeID accepts a full trade id or the short prefix shown in
// listings.
func resolveTradeID(ctx context.Context, b *barter.Bot, userID, input string) (string, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return "", fmt.Errorf("%w: missing trade id", trading.ErrInvalidInput)
	}
	if _, err := b.Trades.GetTrade(ctx, input); err == nil {
		return input, nil
	} else if !errors.Is(err, trading.ErrNotFound) {
		return "", err
	}

	candidates, err := anyVisibleTrade(ctx, b, userID)
	if err != nil {
		return "", err
	}
	return matchTradePrefix(candidates, input)
}

func matchTradePrefix(trades []*trading.Trade, prefix string) (string, error) {
	var found string
	for _, t := range trades {
		if !strings.HasPrefix(t.ID, prefix) {
			continue
		}
		if found != "" && found != t.ID {
			return "", fmt.Errorf("%w: %q matches more than one trade", trading.ErrInvalidInput, prefix)
		}
		found = t.ID
	}
	if found == "" {
		return "", fmt.Errorf("%w: trade %s", trading.ErrNotFound, prefix)
	}
	return found, nil
}
