// cmd/stockwatch/commands.go
package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ArgArity describes what a command accepts after its name.
type ArgArity int

const (
	// ArgsNone ignores anything after the command name.
	ArgsNone ArgArity = iota
	// ArgsToken takes the first whitespace separated token.
	ArgsToken
	// ArgsRest takes the rest of the line verbatim.
	ArgsRest
)

// CommandRequest is one invocation of a chat command.
type CommandRequest struct {
	ChannelID string
	AuthorID  string
	Args      string
	IsAdmin   bool
}

// Command is an entry of the dispatch table.
type Command struct {
	Name        string
	Usage       string
	Description string
	Arity       ArgArity
	AdminOnly   bool

	// Handler returns the reply to post in the invoking channel. An empty
	// reply posts nothing.
	Handler func(ctx context.Context, req CommandRequest) (string, error)
}

// Commands holds the command table and what the handlers need.
type Commands struct {
	prefix   string
	table    map[string]Command
	source   StockSource
	keywords *KeywordStore
	notifier Notifier
	state    *State
	errors   *ErrorSystem
	logger   *Logger
	now      func() time.Time
}

// NewCommands builds the command table.
func NewCommands(prefix string, source StockSource, keywords *KeywordStore, notifier Notifier, state *State, errs *ErrorSystem, logger *Logger) *Commands {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	c := &Commands{
		prefix:   prefix,
		source:   source,
		keywords: keywords,
		notifier: notifier,
		state:    state,
		errors:   errs,
		logger:   logger,
		now:      time.Now,
	}

	c.table = make(map[string]Command)
	for _, cmd := range []Command{
		{Name: "scrape", Description: "Scrape the stock page now and post the raw result", Arity: ArgsNone, Handler: c.handleScrape},
		{Name: "clear", Description: "Delete all non-pinned messages in this channel", Arity: ArgsNone, AdminOnly: true, Handler: c.handleClear},
		{Name: "addkeyword", Usage: "<word>", Description: "Add a watch-word", Arity: ArgsRest, Handler: c.handleAddKeyword},
		{Name: "removekeyword", Usage: "<word>", Description: "Remove a watch-word", Arity: ArgsRest, Handler: c.handleRemoveKeyword},
		{Name: "listkeywords", Description: "List watch-words", Arity: ArgsNone, Handler: c.handleListKeywords},
		{Name: "status", Description: "Show scheduler status", Arity: ArgsNone, Handler: c.handleStatus},
		{Name: "help", Description: "List commands", Arity: ArgsNone, Handler: c.handleHelp},
	} {
		c.table[cmd.Name] = cmd
	}
	return c
}

// Lookup returns the command for name.
func (c *Commands) Lookup(name string) (Command, bool) {
	cmd, ok := c.table[name]
	return cmd, ok
}

// Parse splits a message into a command name and its argument string. ok is
// false when content does not start with the prefix.
func (c *Commands) Parse(content string) (name, args string, ok bool) {
	if !strings.HasPrefix(content, c.prefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(content[len(c.prefix):])
	if rest == "" {
		return "", "", false
	}
	name = rest
	if idx := strings.IndexAny(rest, " \t\n"); idx >= 0 {
		name, args = rest[:idx], strings.TrimSpace(rest[idx+1:])
	}
	return name, args, true
}

// Dispatch runs the command in content, if any, and posts its reply or
// error to the invoking channel. It reports whether content was a known
// command.
func (c *Commands) Dispatch(ctx context.Context, content string, req CommandRequest) bool {
	name, args, ok := c.Parse(content)
	if !ok {
		return false
	}
	cmd, ok := c.table[name]
	if !ok {
		c.logger.Debug("Ignoring unknown command %q", name)
		return false
	}

	reply, err := c.run(ctx, cmd, args, req)
	if err != nil {
		c.errors.HandleError("Command "+cmd.Name+" failed", err, "commands", ErrorSeverityLow)
		reply = "⚠️ " + err.Error()
	}
	if reply == "" {
		return true
	}
	if err := c.notifier.Send(ctx, req.ChannelID, reply); err != nil {
		c.errors.HandleError("Failed to reply to "+cmd.Name, err, "commands", ErrorSeverityMedium)
	}
	return true
}

func (c *Commands) run(ctx context.Context, cmd Command, args string, req CommandRequest) (string, error) {
	if cmd.AdminOnly && !req.IsAdmin {
		return "", fmt.Errorf("you don't have permission to use this command")
	}

	switch cmd.Arity {
	case ArgsNone:
		args = ""
	case ArgsToken:
		fields := strings.Fields(args)
		if len(fields) == 0 {
			return "", fmt.Errorf("missing argument, usage: %s", c.usage(cmd))
		}
		args = fields[0]
	case ArgsRest:
		if args == "" {
			return "", fmt.Errorf("missing argument, usage: %s", c.usage(cmd))
		}
	}

	req.Args = args
	return cmd.Handler(ctx, req)
}

func (c *Commands) usage(cmd Command) string {
	if cmd.Usage == "" {
		return c.prefix + cmd.Name
	}
	return c.prefix + cmd.Name + " " + cmd.Usage
}

func (c *Commands) handleScrape(ctx context.Context, req CommandRequest) (string, error) {
	snapshot, err := c.source.Scrape(ctx)
	if err != nil {
		return "", fmt.Errorf("scrape failed: %v", err)
	}
	if len(snapshot) == 0 {
		return "No stock sections found.", nil
	}
	for _, msg := range FormatBlock("", FormatSnapshot(snapshot)) {
		if err := c.notifier.Send(ctx, req.ChannelID, msg); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (c *Commands) handleClear(ctx context.Context, req CommandRequest) (string, error) {
	if err := c.notifier.SendTransient(ctx, req.ChannelID, "Deleting all messages...", 2*time.Second); err != nil {
		c.logger.Warning("Failed to announce purge: %v", err)
	}

	deleted, err := c.notifier.Purge(ctx, req.ChannelID, keepPinned, PurgeBatchLimit)
	if err != nil {
		return "", fmt.Errorf("purge stopped after %d messages: %v", deleted, err)
	}

	c.logger.Info("Purged %d messages from %s for %s", deleted, req.ChannelID, req.AuthorID)
	if err := c.notifier.SendTransient(ctx, req.ChannelID, fmt.Sprintf("Deleted %d messages.", deleted), 5*time.Second); err != nil {
		return "", err
	}
	return "", nil
}

func (c *Commands) handleAddKeyword(_ context.Context, req CommandRequest) (string, error) {
	added, err := c.keywords.Add(req.Args)
	if err != nil {
		return "", err
	}
	if !added {
		return fmt.Sprintf("`%s` is already in the keyword list.", req.Args), nil
	}
	return fmt.Sprintf("Added `%s` to the keyword list.", req.Args), nil
}

func (c *Commands) handleRemoveKeyword(_ context.Context, req CommandRequest) (string, error) {
	removed, err := c.keywords.Remove(req.Args)
	if err != nil {
		return "", err
	}
	if !removed {
		return fmt.Sprintf("`%s` is not in the keyword list.", req.Args), nil
	}
	return fmt.Sprintf("Removed `%s` from the keyword list.", req.Args), nil
}

func (c *Commands) handleListKeywords(_ context.Context, _ CommandRequest) (string, error) {
	words, err := c.keywords.Load()
	if err != nil {
		return "", err
	}
	return FormatKeywordList(words), nil
}

func (c *Commands) handleStatus(_ context.Context, _ CommandRequest) (string, error) {
	view := c.state.View(c.now())

	var b strings.Builder
	b.WriteString("**Stockwatch Status**\n")
	fmt.Fprintf(&b, "Uptime: %s\n", view.Uptime)
	fmt.Fprintf(&b, "Ticks: %d\n", view.TickCount)
	if !view.NextWake.IsZero() {
		fmt.Fprintf(&b, "Next tick: %s\n", view.NextWake.Format("15:04:05 MST"))
	}
	if view.LastTick != nil {
		fmt.Fprintf(&b, "Last tick: %s", view.LastTick.Wake.Format("15:04:05"))
		if view.LastTick.Error != "" {
			fmt.Fprintf(&b, " (failed: %s)", view.LastTick.Error)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Errors: %d", c.errors.Count())
	return b.String(), nil
}

func (c *Commands) handleHelp(_ context.Context, req CommandRequest) (string, error) {
	names := make([]string, 0, len(c.table))
	for name := range c.table {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("**Commands:**")
	for _, name := range names {
		cmd := c.table[name]
		if cmd.AdminOnly && !req.IsAdmin {
			continue
		}
		fmt.Fprintf(&b, "\n`%s` %s", c.usage(cmd), cmd.Description)
	}
	return b.String(), nil
}
