package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Post stock updates from the stock page to Discord",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       AppVersion,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", DefaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "path to a .env file")

	root.AddCommand(
		newRunCommand(opts),
		newScrapeCommand(opts),
		newKeywordsCommand(opts),
		newNextCommand(opts),
		newCheckEnvCommand(opts),
	)
	return root
}

func (o *rootOptions) load() (*Config, error) {
	if err := LoadEnv(o.envFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %v", o.envFile, err)
	}
	return LoadConfig(o.configPath)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and post stock on schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger, err := OpenLogger(cfg.LogPath, ParseLogLevel(cfg.LogLevel))
			if err != nil {
				return err
			}
			defer logger.Close()

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			bot, err := NewBot(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := bot.Start(ctx); err != nil {
				return err
			}
			logger.Info("Bot is now running. Press CTRL-C to exit.")

			<-ctx.Done()
			return bot.Stop()
		},
	}
}

func newScrapeCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the stock page once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateScraper(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout()+5*time.Second)
			defer cancel()

			scraper := NewScraper(NewFetcher(cfg.StockURL, cfg.UserAgent, cfg.FetchTimeout()), cfg.HeadingSelector)
			snapshot, err := scraper.Scrape(ctx)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snapshot, cfg.DenySet(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print both tiers and parsed counts as JSON")
	return cmd
}

func printSnapshot(cmd *cobra.Command, snapshot Snapshot, deny DenySet, asJSON bool) error {
	out := cmd.OutOrStdout()
	if !asJSON {
		fmt.Fprintln(out, strings.Join(FormatSnapshot(snapshot), "\n"))
		return nil
	}

	part := Classify(snapshot, deny)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"included":       part.Included,
		"filtered":       part.Filtered,
		"includedCounts": ParseStockCounts(part.Included),
		"filteredCounts": ParseStockCounts(part.Filtered),
	})
}

func newKeywordsCommand(opts *rootOptions) *cobra.Command {
	store := func() (*KeywordStore, error) {
		cfg, err := opts.load()
		if err != nil {
			return nil, err
		}
		return NewKeywordStore(cfg.KeywordsFile), nil
	}

	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Manage watch-words",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watch-words",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ks, err := store()
				if err != nil {
					return err
				}
				words, err := ks.Load()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), FormatKeywordList(words))
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <word>",
			Short: "Add a watch-word",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ks, err := store()
				if err != nil {
					return err
				}
				word := strings.Join(args, " ")
				added, err := ks.Add(word)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "Added `%s` to the keyword list.\n", word)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "`%s` is already in the keyword list.\n", word)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <word>",
			Short: "Remove a watch-word",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ks, err := store()
				if err != nil {
					return err
				}
				word := strings.Join(args, " ")
				removed, err := ks.Remove(word)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed `%s` from the keyword list.\n", word)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "`%s` is not in the keyword list.\n", word)
				}
				return nil
			},
		},
	)
	return cmd
}

func newNextCommand(opts *rootOptions) *cobra.Command {
	var (
		count int
		from  string
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the upcoming wake instants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			schedule, err := ParseWakeSchedule(cfg.Schedule)
			if err != nil {
				return err
			}
			gate, err := ParseGate(cfg.FilteredGate)
			if err != nil {
				return err
			}

			start := time.Now()
			if from != "" {
				if start, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("invalid --from: %v", err)
				}
			}

			for _, wake := range NextWakes(schedule, start, count) {
				tiers := "included"
				if gate.Open(wake) {
					tiers = "included+filtered"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", wake.Format(time.RFC3339), tiers)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 6, "number of wake instants to print")
	cmd.Flags().StringVar(&from, "from", "", "start time in RFC 3339 (default now)")
	return cmd
}

func newCheckEnvCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkenv",
		Short: "Check that the required settings are present",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			required := map[string]string{
				"DISCORD_TOKEN":    cfg.BotToken,
				"STOCK_CHANNEL_ID": cfg.ChannelID,
				"NOTIFY_USER_ID":   cfg.NotifyUserID,
			}
			var missing []string
			for _, key := range []string{"DISCORD_TOKEN", "STOCK_CHANNEL_ID", "NOTIFY_USER_ID"} {
				if required[key] == "" {
					missing = append(missing, key)
				} else {
					fmt.Fprintf(out, "%s is set\n", key)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("missing settings: %s", strings.Join(missing, ", "))
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(out, "All required settings are present.")
			return nil
		},
	}
}
