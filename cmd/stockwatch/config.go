package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds application configuration
type Config struct {
	// Bot Configuration
	BotToken      string   `yaml:"bot_token"`
	NotifyUserID  string   `yaml:"notify_user_id"`
	ChannelID     string   `yaml:"channel_id"`
	OwnerIDs      []string `yaml:"owner_ids"`
	CommandPrefix string   `yaml:"command_prefix"`

	// Scraping
	StockURL            string   `yaml:"stock_url"`
	UserAgent           string   `yaml:"user_agent"`
	HeadingSelector     string   `yaml:"heading_selector"`
	FilteredHeaders     []string `yaml:"filtered_headers"`
	FetchTimeoutSeconds int      `yaml:"fetch_timeout_seconds"`

	// Scheduling. An empty Schedule uses the five minute :05 cadence.
	Schedule     string `yaml:"schedule"`
	FilteredGate string `yaml:"filtered_gate"`

	// Storage and output
	KeywordsFile   string `yaml:"keywords_file"`
	SendsPerMinute int    `yaml:"sends_per_minute"`
	LogPath        string `yaml:"log_path"`
	LogLevel       string `yaml:"log_level"`

	// Status API. It binds to loopback unless StatusPublic is set.
	StatusPort   int  `yaml:"status_port"`
	StatusPublic bool `yaml:"status_public"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		CommandPrefix:       DefaultPrefix,
		StockURL:            DefaultStockURL,
		UserAgent:           DefaultUserAgent,
		HeadingSelector:     DefaultHeadingSelector,
		FilteredHeaders:     []string{"== HONEY STOCK ==", "== EGG STOCK =="},
		FetchTimeoutSeconds: int(DefaultTimeout / time.Second),
		FilteredGate:        DefaultFilteredGate,
		KeywordsFile:        DefaultKeywordsFile,
		SendsPerMinute:      MaxSendsPerMinute,
		LogLevel:            "info",
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// at path and the environment, in that order of precedence (env wins).
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// optional
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BotToken = GetEnvString("DISCORD_TOKEN", c.BotToken)
	c.NotifyUserID = GetEnvString("NOTIFY_USER_ID", c.NotifyUserID)
	c.ChannelID = GetEnvString("STOCK_CHANNEL_ID", c.ChannelID)
	c.OwnerIDs = GetEnvStringSlice("OWNER_IDS", c.OwnerIDs)
	c.CommandPrefix = GetEnvString("COMMAND_PREFIX", c.CommandPrefix)
	c.StockURL = GetEnvString("STOCK_URL", c.StockURL)
	c.UserAgent = GetEnvString("USER_AGENT", c.UserAgent)
	c.HeadingSelector = GetEnvString("HEADING_SELECTOR", c.HeadingSelector)
	c.FilteredHeaders = GetEnvStringSlice("FILTERED_HEADERS", c.FilteredHeaders)
	c.FetchTimeoutSeconds = GetEnvInt("FETCH_TIMEOUT_SECONDS", c.FetchTimeoutSeconds)
	c.Schedule = GetEnvString("STOCK_SCHEDULE", c.Schedule)
	c.FilteredGate = GetEnvString("FILTERED_GATE", c.FilteredGate)
	c.KeywordsFile = GetEnvString("KEYWORDS_FILE", c.KeywordsFile)
	c.SendsPerMinute = GetEnvInt("SENDS_PER_MINUTE", c.SendsPerMinute)
	c.StatusPort = GetEnvInt("STATUS_PORT", c.StatusPort)
	c.StatusPublic = GetEnvBool("STATUS_PUBLIC", c.StatusPublic)
	c.LogPath = GetEnvString("LOG_PATH", c.LogPath)
	c.LogLevel = GetEnvString("LOG_LEVEL", c.LogLevel)
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.ChannelID == "" {
		return fmt.Errorf("STOCK_CHANNEL_ID is required")
	}
	if _, err := strconv.ParseUint(c.ChannelID, 10, 64); err != nil {
		return fmt.Errorf("STOCK_CHANNEL_ID must be numeric: %q", c.ChannelID)
	}
	if c.NotifyUserID == "" {
		return fmt.Errorf("NOTIFY_USER_ID is required")
	}
	if _, err := strconv.ParseUint(c.NotifyUserID, 10, 64); err != nil {
		return fmt.Errorf("NOTIFY_USER_ID must be numeric: %q", c.NotifyUserID)
	}
	return c.ValidateScraper()
}

// ValidateScraper checks only what a one-off scrape needs.
func (c *Config) ValidateScraper() error {
	if c.StockURL == "" {
		return fmt.Errorf("STOCK_URL is required")
	}
	if c.HeadingSelector == "" {
		return fmt.Errorf("HEADING_SELECTOR must not be empty")
	}
	if _, err := ParseWakeSchedule(c.Schedule); err != nil {
		return err
	}
	if _, err := ParseGate(c.FilteredGate); err != nil {
		return err
	}
	return nil
}

// StatusAddr is the listen address for the status API.
func (c *Config) StatusAddr() string {
	if c.StatusPublic {
		return fmt.Sprintf(":%d", c.StatusPort)
	}
	return fmt.Sprintf("127.0.0.1:%d", c.StatusPort)
}

// FetchTimeout returns the per-request timeout for the fetcher.
func (c *Config) FetchTimeout() time.Duration {
	if c.FetchTimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// DenySet returns the filtered headers as a lookup set.
func (c *Config) DenySet() DenySet {
	return NewDenySet(c.FilteredHeaders...)
}
