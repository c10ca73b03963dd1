// cmd/stockwatch/notifier.go
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

// Notifier delivers text to the chat platform.
type Notifier interface {
	// Send posts text to channelID, splitting it if it is too long.
	Send(ctx context.Context, channelID, text string) error
	// SendTransient posts text and deletes it again after ttl.
	SendTransient(ctx context.Context, channelID, text string, ttl time.Duration) error
	// Mention returns the token that pings userID.
	Mention(ctx context.Context, userID string) (string, error)
	// Purge deletes messages in channelID that keep rejects, fetching
	// batchLimit messages at a time, and returns how many were deleted.
	Purge(ctx context.Context, channelID string, keep func(*discordgo.Message) bool, batchLimit int) (int, error)
}

// discordAPI is the part of the Discord REST API the notifier uses.
type discordAPI interface {
	SendMessage(channelID, content string) (*discordgo.Message, error)
	GetUser(userID string) (*discordgo.User, error)
	ListMessages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
	DeleteMessages(channelID string, messageIDs []string) error
	DeleteMessage(channelID, messageID string) error
}

type sessionAPI struct {
	session *discordgo.Session
}

func (a sessionAPI) SendMessage(channelID, content string) (*discordgo.Message, error) {
	return a.session.ChannelMessageSend(channelID, content)
}

func (a sessionAPI) GetUser(userID string) (*discordgo.User, error) {
	return a.session.User(userID)
}

func (a sessionAPI) ListMessages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	return a.session.ChannelMessages(channelID, limit, beforeID, "", "")
}

func (a sessionAPI) DeleteMessages(channelID string, messageIDs []string) error {
	return a.session.ChannelMessagesBulkDelete(channelID, messageIDs)
}

func (a sessionAPI) DeleteMessage(channelID, messageID string) error {
	return a.session.ChannelMessageDelete(channelID, messageID)
}

// DiscordNotifier implements Notifier on a discordgo session. Every REST call
// waits on a shared rate limiter.
type DiscordNotifier struct {
	api      discordAPI
	limiter  *rate.Limiter
	mentions *Cache
	logger   *Logger
	now      func() time.Time
}

// NewDiscordNotifier wraps session, allowing sendsPerMinute REST calls per
// minute with a small burst.
func NewDiscordNotifier(session *discordgo.Session, sendsPerMinute int, logger *Logger) *DiscordNotifier {
	return newDiscordNotifier(sessionAPI{session: session}, sendsPerMinute, logger)
}

func newDiscordNotifier(api discordAPI, sendsPerMinute int, logger *Logger) *DiscordNotifier {
	if sendsPerMinute <= 0 {
		sendsPerMinute = MaxSendsPerMinute
	}
	return &DiscordNotifier{
		api:      api,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(sendsPerMinute)), 5),
		mentions: NewCache(MentionTTL, 100),
		logger:   logger,
		now:      time.Now,
	}
}

// Send implements Notifier.
func (n *DiscordNotifier) Send(ctx context.Context, channelID, text string) error {
	_, err := n.send(ctx, channelID, text)
	return err
}

func (n *DiscordNotifier) send(ctx context.Context, channelID, text string) ([]*discordgo.Message, error) {
	var sent []*discordgo.Message
	for _, part := range splitMessage(text) {
		if err := n.limiter.Wait(ctx); err != nil {
			return sent, err
		}
		msg, err := n.api.SendMessage(channelID, part)
		if err != nil {
			return sent, fmt.Errorf("%w: send to %s: %v", ErrPlatform, channelID, err)
		}
		sent = append(sent, msg)
	}
	return sent, nil
}

// SendTransient implements Notifier.
func (n *DiscordNotifier) SendTransient(ctx context.Context, channelID, text string, ttl time.Duration) error {
	sent, err := n.send(ctx, channelID, text)
	if err != nil {
		return err
	}
	time.AfterFunc(ttl, func() {
		for _, msg := range sent {
			if msg == nil {
				continue
			}
			if err := n.api.DeleteMessage(channelID, msg.ID); err != nil {
				n.logger.Warning("Failed to delete transient message %s: %v", msg.ID, err)
			}
		}
	})
	return nil
}

// Mention implements Notifier. Resolved users are cached for MentionTTL.
func (n *DiscordNotifier) Mention(ctx context.Context, userID string) (string, error) {
	if mention, ok := n.mentions.Get(userID); ok {
		return mention, nil
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return "", err
	}
	user, err := n.api.GetUser(userID)
	if err != nil {
		return "", fmt.Errorf("%w: fetch user %s: %v", ErrPlatform, userID, err)
	}
	mention := user.Mention()
	n.mentions.Set(userID, mention)
	return mention, nil
}

// Purge implements Notifier. Messages older than the bulk delete window are
// removed one at a time.
func (n *DiscordNotifier) Purge(ctx context.Context, channelID string, keep func(*discordgo.Message) bool, batchLimit int) (int, error) {
	if batchLimit <= 0 || batchLimit > PurgeBatchLimit {
		batchLimit = PurgeBatchLimit
	}

	deleted := 0
	before := ""
	for {
		if err := n.limiter.Wait(ctx); err != nil {
			return deleted, err
		}
		msgs, err := n.api.ListMessages(channelID, batchLimit, before)
		if err != nil {
			return deleted, fmt.Errorf("%w: list messages in %s: %v", ErrPlatform, channelID, err)
		}
		if len(msgs) == 0 {
			return deleted, nil
		}
		before = msgs[len(msgs)-1].ID

		cutoff := n.now().Add(-BulkDeleteMaxAge).Add(time.Minute)
		var recent, old []string
		for _, msg := range msgs {
			if keep != nil && keep(msg) {
				continue
			}
			if msg.Timestamp.After(cutoff) {
				recent = append(recent, msg.ID)
			} else {
				old = append(old, msg.ID)
			}
		}

		if len(recent) > 0 {
			if err := n.limiter.Wait(ctx); err != nil {
				return deleted, err
			}
			if err := n.api.DeleteMessages(channelID, recent); err != nil {
				return deleted, fmt.Errorf("%w: bulk delete in %s: %v", ErrPlatform, channelID, err)
			}
			deleted += len(recent)
		}
		for _, id := range old {
			if err := n.limiter.Wait(ctx); err != nil {
				return deleted, err
			}
			if err := n.api.DeleteMessage(channelID, id); err != nil {
				return deleted, fmt.Errorf("%w: delete %s in %s: %v", ErrPlatform, id, channelID, err)
			}
			deleted++
		}

		if len(msgs) < batchLimit {
			return deleted, nil
		}
	}
}

// keepPinned keeps pinned messages out of a purge.
func keepPinned(msg *discordgo.Message) bool {
	return msg.Pinned
}

// splitMessage breaks text on line boundaries into parts that fit in one
// Discord message.
func splitMessage(text string) []string {
	if len([]rune(text)) <= MaxMessageLength {
		return []string{text}
	}
	var parts []string
	for _, chunk := range chunkLines(strings.Split(text, "\n"), MaxMessageLength) {
		parts = append(parts, strings.Join(chunk, "\n"))
	}
	return parts
}
