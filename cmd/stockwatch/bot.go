// cmd/stockwatch/bot.go
package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Bot is the application context: configuration, storage, the Discord
// session and the scheduler all hang off it.
type Bot struct {
	config    *Config
	logger    *Logger
	errors    *ErrorSystem
	state     *State
	session   *discordgo.Session
	keywords  *KeywordStore
	notifier  Notifier
	scraper   *Scraper
	scheduler *Scheduler
	commands  *Commands
	hub       *Hub
	status    *StatusServer

	// connect opens the gateway and checks the target channel.
	connect func() error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBot wires every component from cfg. It does not connect to Discord.
func NewBot(cfg *Config, logger *Logger) (*Bot, error) {
	schedule, err := ParseWakeSchedule(cfg.Schedule)
	if err != nil {
		return nil, err
	}
	gate, err := ParseGate(cfg.FilteredGate)
	if err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %v", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		config:   cfg,
		logger:   logger,
		errors:   NewErrorSystem(logger, MaxErrorRecords),
		state:    NewState(time.Now()),
		session:  session,
		keywords: NewKeywordStore(cfg.KeywordsFile),
		scraper:  NewScraper(NewFetcher(cfg.StockURL, cfg.UserAgent, cfg.FetchTimeout()), cfg.HeadingSelector),
		hub:      NewHub(logger),
	}
	b.connect = b.openSession
	b.notifier = NewDiscordNotifier(session, cfg.SendsPerMinute, logger)

	b.scheduler = NewScheduler(SchedulerOptions{
		Source:    b.scraper,
		Notifier:  b.notifier,
		Keywords:  b.keywords,
		Deny:      cfg.DenySet(),
		Schedule:  schedule,
		Gate:      gate,
		State:     b.state,
		Errors:    b.errors,
		Logger:    logger,
		ChannelID: cfg.ChannelID,
		UserID:    cfg.NotifyUserID,
		OnTick: func(report TickReport) {
			b.hub.Broadcast(report)
		},
	})

	b.commands = NewCommands(cfg.CommandPrefix, b.scraper, b.keywords, b.notifier, b.state, b.errors, logger)

	if cfg.StatusPort > 0 {
		b.status = NewStatusServer(cfg.StatusAddr(), b.state, b.errors, b.keywords, b.hub, logger)
	}
	return b, nil
}

// Start connects to Discord and starts the scheduler and status API.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Starting %s v%s", AppName, AppVersion)

	// Handlers may fire as soon as the gateway opens, so the context is
	// set before they are registered.
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleMessageCreate)

	if err := b.connect(); err != nil {
		b.cancel()
		return err
	}

	if b.status != nil {
		b.status.Start()
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer RecoverFromPanic(b.logger, "scheduler")
		if err := b.scheduler.Run(b.ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.errors.HandleError("Scheduler exited", err, "scheduler", ErrorSeverityFatal)
		}
	}()

	return nil
}

func (b *Bot) openSession() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %v", err)
	}
	if _, err := b.session.Channel(b.config.ChannelID); err != nil {
		b.session.Close()
		return fmt.Errorf("channel %s not found: %v", b.config.ChannelID, err)
	}
	return nil
}

// Stop cancels the scheduler sleep, waits for the loop to exit and closes
// the session.
func (b *Bot) Stop() error {
	b.logger.Info("Stopping bot...")

	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()

	if b.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.status.Shutdown(ctx); err != nil {
			b.logger.Error("Failed to stop status API: %v", err)
		}
	}

	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Logged in as %s (ID: %s)", r.User.Username, r.User.ID)

	if err := s.UpdateGameStatus(0, "Watching stock | "+b.config.CommandPrefix+"help"); err != nil {
		b.logger.Warning("Failed to update status: %v", err)
	}
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}
	defer RecoverFromPanic(b.logger, "command")

	name, _, ok := b.commands.Parse(m.Content)
	if !ok {
		return
	}
	cmd, ok := b.commands.Lookup(name)
	if !ok {
		return
	}

	req := CommandRequest{ChannelID: m.ChannelID, AuthorID: m.Author.ID}
	if cmd.AdminOnly || cmd.Name == "help" {
		admin, err := IsAdmin(s, b.config, m.Author.ID, m.ChannelID)
		if err != nil {
			b.logger.Warning("Failed to check permissions for %s: %v", m.Author.ID, err)
		}
		req.IsAdmin = admin
	}

	b.commands.Dispatch(b.context(), m.Content, req)
}

func (b *Bot) context() context.Context {
	if b.ctx != nil {
		return b.ctx
	}
	return context.Background()
}
