package commands

import (
	"fmt"
	"runtime"

	"github.com/biscuitbarter/barterbot/barter"
	"github.com/biscuitbarter/barterbot/barter/config"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
)

func VersionHandler(b *barter.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{discord.NewEmbedBuilder().
				SetTitle("🍪 Barter bot").
				AddField("Version", fmt.Sprintf("`%s`", b.Version), true).
				AddField("Commit", fmt.Sprintf("`%s`", b.Commit), true).
				AddField("Go", fmt.Sprintf("`%s`", runtime.Version()), true).
				AddField("disgo", fmt.Sprintf("`%s`", disgo.Version), true).
				SetColor(config.EmbedDefaultColor).
				Build()},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}
