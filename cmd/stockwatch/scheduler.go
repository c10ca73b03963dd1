// cmd/stockwatch/scheduler.go
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// StockSource produces one snapshot per call.
type StockSource interface {
	Scrape(ctx context.Context) (Snapshot, error)
}

// Scraper fetches the stock page and parses it.
type Scraper struct {
	fetcher  *Fetcher
	selector string
}

// NewScraper creates a scraper using the fetcher and heading selector.
func NewScraper(fetcher *Fetcher, selector string) *Scraper {
	return &Scraper{fetcher: fetcher, selector: selector}
}

// Scrape implements StockSource. A page without matching headings gives an
// empty snapshot.
func (s *Scraper) Scrape(ctx context.Context) (Snapshot, error) {
	body, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ParseStock(strings.NewReader(body), s.selector)
}

// SchedulerOptions wires a Scheduler.
type SchedulerOptions struct {
	Source    StockSource
	Notifier  Notifier
	Keywords  *KeywordStore
	Deny      DenySet
	Schedule  cron.Schedule
	Gate      *Gate
	State     *State
	Errors    *ErrorSystem
	Logger    *Logger
	ChannelID string
	UserID    string

	// OnTick is called after every tick, including failed ones.
	OnTick func(TickReport)
}

// Scheduler runs the scrape and post cycle on its wake schedule.
type Scheduler struct {
	SchedulerOptions

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a scheduler from opts.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	if opts.Schedule == nil {
		opts.Schedule = FiveMinuteSchedule{}
	}
	return &Scheduler{
		SchedulerOptions: opts,
		now:              time.Now,
		sleep:            sleepContext,
	}
}

// Run loops until ctx is cancelled. Failed ticks are logged and the loop
// moves on to the next wake instant.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Logger.Info("Scheduler started")

	var last time.Time
	for {
		now := s.now()
		from := now
		if from.Before(last) {
			from = last
		}

		wake := s.Schedule.Next(from)
		if wake.IsZero() {
			return fmt.Errorf("schedule has no wake instant after %s", from.Format(time.RFC3339))
		}
		s.State.SetNextWake(wake)
		s.Logger.Debug("Next tick at %s", wake.Format(time.RFC3339))

		if err := s.sleep(ctx, wake.Sub(now)); err != nil {
			s.Logger.Info("Scheduler stopped")
			return err
		}

		last = wake
		s.Tick(ctx, wake)
	}
}

// Tick runs one scrape and posts the result for the wake instant. The
// filtered tier is posted only when the gate is open at wake.
func (s *Scheduler) Tick(ctx context.Context, wake time.Time) (report TickReport) {
	report.Wake = wake

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			report.Error = err.Error()
			s.Errors.HandleError("Tick aborted", err, "scheduler", ErrorSeverityHigh)
		}
		report.Finished = s.now()
		s.State.RecordTick(report)
		if s.OnTick != nil {
			s.OnTick(report)
		}
	}()

	keywords, err := s.Keywords.Load()
	if err != nil {
		s.Errors.HandleError("Failed to load keywords", err, "keywords", ErrorSeverityMedium)
		keywords = nil
	}

	snapshot, err := s.Source.Scrape(ctx)
	if err != nil {
		report.Error = err.Error()
		s.Errors.HandleError("Scrape failed", err, errorKind(err), ErrorSeverityMedium)
		return report
	}
	if len(snapshot) == 0 {
		s.Errors.HandleError("Scrape found no stock sections", ErrParse, "parse", ErrorSeverityLow)
	}

	part := Classify(snapshot, s.Deny)
	s.State.RecordPartition(part, s.now())
	report.IncludedLines = len(part.Included)
	report.FilteredLines = len(part.Filtered)

	matched, err := s.emit(ctx, TierIncluded, part.Included, keywords)
	report.MatchedKeywords = append(report.MatchedKeywords, matched...)
	if err != nil {
		report.Error = err.Error()
	}

	if s.Gate != nil && s.Gate.Open(wake) {
		report.FilteredPosted = true
		matched, err = s.emit(ctx, TierFiltered, part.Filtered, keywords)
		report.MatchedKeywords = append(report.MatchedKeywords, matched...)
		if err != nil && report.Error == "" {
			report.Error = err.Error()
		}
	}

	s.Logger.Info("Tick %s: %d included, %d filtered lines, filtered posted: %t",
		wake.Format("15:04:05"), report.IncludedLines, report.FilteredLines, report.FilteredPosted)
	return report
}

// emit posts one tier and, when watch-words match it, mentions the user.
// Platform errors are recorded and returned; they never stop the tick.
func (s *Scheduler) emit(ctx context.Context, tier string, lines Snapshot, keywords []string) ([]string, error) {
	if len(lines) == 0 {
		s.Logger.Debug("%s is empty, nothing to post", tier)
		return nil, nil
	}

	var postErr error
	for _, msg := range FormatBlock(tier, lines) {
		if err := s.Notifier.Send(ctx, s.ChannelID, msg); err != nil {
			s.Errors.HandleError("Failed to post "+tier, err, "notifier", ErrorSeverityMedium)
			postErr = err
			break
		}
	}

	matched := MatchKeywords(keywords, lines)
	if len(matched) == 0 {
		return nil, postErr
	}

	mention, err := s.Notifier.Mention(ctx, s.UserID)
	if err != nil {
		s.Errors.HandleError("Failed to resolve user to mention", err, "notifier", ErrorSeverityLow)
		mention = "<@" + s.UserID + ">"
	}
	if err := s.Notifier.Send(ctx, s.ChannelID, FormatKeywordAlert(mention, tier, matched)); err != nil {
		s.Errors.HandleError("Failed to send keyword alert", err, "notifier", ErrorSeverityMedium)
		if postErr == nil {
			postErr = err
		}
	}
	return matched, postErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
