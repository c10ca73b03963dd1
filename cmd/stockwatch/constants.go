// cmd/stockwatch/constants.go
package main

import "time"

// Application constants
const (
	AppName    = "stockwatch"
	AppVersion = "1.0.0"

	DefaultConfigPath      = "config/stockwatch.yml"
	DefaultKeywordsFile    = "keywords.txt"
	DefaultStockURL        = "https://vulcanvalues.com/grow-a-garden/stock"
	DefaultUserAgent       = "Mozilla/5.0"
	DefaultHeadingSelector = "h2.text-xl.font-bold.mb-2.text-center"

	// Wakes happen at second 5 of every fifth minute; the filtered tier is
	// posted when the wake lands on the half hour.
	WakeSecond          = 5
	WakeIntervalMinutes = 5
	DefaultFilteredGate = "5 0,30 * * * *"

	DefaultTimeout = 30 * time.Second

	// Discord-related constants
	MaxMessageLength  = 2000
	MaxSendsPerMinute = 30
	PurgeBatchLimit   = 100
	BulkDeleteMaxAge  = 14 * 24 * time.Hour
	DefaultPrefix     = "!"

	MaxErrorRecords = 100
)

// Status codes
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusStarting = "starting"
)
