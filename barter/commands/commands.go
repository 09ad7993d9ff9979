package commands

import (
	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/disgoorg/disgo/discord"
)

var Commands = []discord.ApplicationCommandCreate{
	Inventory,
	Trade,
	Bid,
	Admin,
	Version,
}

var Inventory = discord.SlashCommandCreate{
	Name:        "inventory",
	Description: "View your biscuit inventory",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Whose inventory to view",
			Required:    false,
		},
	},
}

func tradeIDOption(description string) discord.ApplicationCommandOptionString {
	return discord.ApplicationCommandOptionString{
		Name:         "trade_id",
		Description:  description,
		Required:     true,
		Autocomplete: true,
	}
}

var Trade = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Swap biscuits with other traders",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "create",
			Description: "Put biscuits up for trade",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "type",
					Description: "Fixed price or open to bids",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Fixed", Value: string(trading.KindFixed)},
						{Name: "Auction", Value: string(trading.KindAuction)},
					},
				},
				discord.ApplicationCommandOptionString{
					Name:         "offer",
					Description:  "What you give, e.g. oreo:2, jaffa",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionString{
					Name:         "want",
					Description:  "The biscuit you want back",
					Required:     false,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "want_qty",
					Description: "How many you want back (default 1)",
					Required:    false,
					MinValue:    intPtr(1),
				},
				discord.ApplicationCommandOptionBool{
					Name:        "any_item",
					Description: "Auctions only: take any bid, using want as a hint",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "accept",
			Description: "Take a fixed trade",
			Options:     []discord.ApplicationCommandOption{tradeIDOption("The trade to take")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "confirm",
			Description: "Confirm a pending trade",
			Options:     []discord.ApplicationCommandOption{tradeIDOption("The trade to confirm")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "cancel",
			Description: "Cancel a trade and get your biscuits back",
			Options:     []discord.ApplicationCommandOption{tradeIDOption("The trade to cancel")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "view",
			Description: "Show a trade in detail",
			Options:     []discord.ApplicationCommandOption{tradeIDOption("The trade to show")},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "Browse open trades",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "history",
			Description: "Your completed trades",
		},
	},
}

var Bid = discord.SlashCommandCreate{
	Name:        "bid",
	Description: "Bid on biscuit auctions",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "place",
			Description: "Reserve biscuits as a bid on an auction",
			Options: []discord.ApplicationCommandOption{
				tradeIDOption("The auction to bid on"),
				discord.ApplicationCommandOptionString{
					Name:         "item",
					Description:  "The biscuit you bid",
					Required:     true,
					Autocomplete: true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "qty",
					Description: "How many (default 1)",
					Required:    false,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "accept",
			Description: "Accept a bid on your auction",
			Options: []discord.ApplicationCommandOption{
				tradeIDOption("Your auction"),
				discord.ApplicationCommandOptionString{
					Name:         "bid_id",
					Description:  "The bid to accept",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "list",
			Description: "Show the bids on an auction",
			Options:     []discord.ApplicationCommandOption{tradeIDOption("The auction")},
		},
	},
}

var Admin = discord.SlashCommandCreate{
	Name:        "admin",
	Description: "Market administration",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "restock",
			Description: "Give or take biscuits",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "user", Description: "Target user", Required: true},
				discord.ApplicationCommandOptionString{Name: "item", Description: "Biscuit", Required: true, Autocomplete: true},
				discord.ApplicationCommandOptionInt{Name: "delta", Description: "Amount to add, negative to remove", Required: true},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "set",
			Description: "Set a user's balance of a biscuit",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "user", Description: "Target user", Required: true},
				discord.ApplicationCommandOptionString{Name: "item", Description: "Biscuit", Required: true, Autocomplete: true},
				discord.ApplicationCommandOptionInt{Name: "qty", Description: "New balance", Required: true, MinValue: intPtr(0)},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "freeze",
			Description: "Freeze or unfreeze an account",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{Name: "user", Description: "Target user", Required: true},
				discord.ApplicationCommandOptionBool{Name: "frozen", Description: "Freeze (true) or thaw (false)", Required: true},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "audit",
			Description: "Count every biscuit in the system",
		},
	},
}

var Version = discord.SlashCommandCreate{
	Name:        "version",
	Description: "Show the bot version",
}

func intPtr(v int) *int {
	return &v
}
