package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

// NameFunc turns an item id into a display name.
type NameFunc func(itemID string) string

// ErrorMessage turns an engine error into something a trader can act on.
func ErrorMessage(err error, name NameFunc) string {
	if name == nil {
		name = func(id string) string { return id }
	}

	var short *trading.InsufficientStockError
	switch {
	case errors.As(err, &short):
		return fmt.Sprintf("❌ You need %d more %s (you have %d, this needs %d).",
			short.Missing(), name(short.ItemID), short.Have, short.Need)
	case errors.Is(err, trading.ErrSelfTrade):
		return "❌ You can't trade with yourself."
	case errors.Is(err, trading.ErrInvalidInput):
		return "❌ " + capitalize(reason(err, trading.ErrInvalidInput))
	case errors.Is(err, trading.ErrInvalidState):
		return "❌ That trade can't do that right now: " + reason(err, trading.ErrInvalidState) + "."
	case errors.Is(err, trading.ErrUnauthorized):
		if strings.Contains(err.Error(), "frozen") {
			return "🧊 Your account is frozen. Ask an admin for help."
		}
		return "❌ Only the people in this trade can do that."
	case errors.Is(err, trading.ErrNotFound):
		return "❌ Couldn't find that: " + reason(err, trading.ErrNotFound) + "."
	case errors.Is(err, trading.ErrStorageConflict):
		return "❌ Someone else got there first. Please try again."
	default:
		return "❌ Something went wrong. Please try again in a moment."
	}
}

// reason is the detail that follows sentinel in err's message.
func reason(err error, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const reconciliationNotice = "\n⚠️ Some biscuits could not be returned yet. An admin has been alerted and will fix it."

// outcomeNotice is appended to a success reply when the operation went
// through but left a refund for reconciliation.
func outcomeNotice(err error) string {
	if trading.IsReconciliation(err) {
		return reconciliationNotice
	}
	return ""
}

func logReconciliation(op string, err error) {
	if err == nil {
		return
	}
	slog.Error("Trade needs reconciliation",
		slog.String("type", "trade"),
		slog.String("operation", op),
		slog.Any("error", err))
}

func replyError(e *handler.CommandEvent, err error, name NameFunc) error {
	return e.CreateMessage(discord.MessageCreate{
		Content: ErrorMessage(err, name),
		Flags:   discord.MessageFlagEphemeral,
	})
}

func replyText(e *handler.CommandEvent, content string) error {
	return e.CreateMessage(discord.MessageCreate{
		Content: content,
		Flags:   discord.MessageFlagEphemeral,
	})
}
