package config

import "time"

// UI and Display Constants
const (
	// Pagination
	HoldingsPerPage = 10
	TradesPerPage   = 5
	BidsPerPage     = 8

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31

	// Autocomplete
	MaxAutocompleteChoices = 25
)

// Database and Performance Constants
const (
	DefaultQueryTimeout     = 30 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	DefaultTxTimeout        = 30 * time.Second

	// Cache settings
	CatalogCacheSize = 512
	CatalogListTTL   = 2 * time.Minute

	// Notifications
	NotifyQueueSize   = 256
	NotifyWorkers     = 2
	NotifyPublishWait = 5 * time.Second
)

// Trading Constants
const (
	// Compensation retries for refunds and swap credits
	DefaultCompensationRetries = 3
	DefaultCompensationBackoff = 100 * time.Millisecond

	// Per-user command rate limit
	DefaultTradeRate  = 1.0 // tokens per second
	DefaultTradeBurst = 5

	MaxBundleLines = 10
)
