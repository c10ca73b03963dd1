package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeDiscordAPI struct {
	mutex      sync.Mutex
	sent       []string
	sendErr    error
	users      map[string]*discordgo.User
	userCalls  int
	history    []*discordgo.Message
	listCalls  []string
	bulk       [][]string
	singles    []string
	deletedIDs map[string]bool
}

func (f *fakeDiscordAPI) SendMessage(channelID, content string) (*discordgo.Message, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, content)
	return &discordgo.Message{ID: fmt.Sprintf("m%d", len(f.sent)), ChannelID: channelID, Content: content}, nil
}

func (f *fakeDiscordAPI) GetUser(userID string) (*discordgo.User, error) {
	f.userCalls++
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

// ListMessages pages through history, newest first, skipping deleted ids.
func (f *fakeDiscordAPI) ListMessages(_ string, limit int, beforeID string) ([]*discordgo.Message, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.listCalls = append(f.listCalls, beforeID)

	start := 0
	if beforeID != "" {
		for i, m := range f.history {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	var out []*discordgo.Message
	for _, m := range f.history[start:] {
		if len(out) == limit {
			break
		}
		if !f.deletedIDs[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeDiscordAPI) DeleteMessages(_ string, ids []string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.bulk = append(f.bulk, ids)
	f.markDeleted(ids...)
	return nil
}

func (f *fakeDiscordAPI) DeleteMessage(_ string, id string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.singles = append(f.singles, id)
	f.markDeleted(id)
	return nil
}

func (f *fakeDiscordAPI) markDeleted(ids ...string) {
	if f.deletedIDs == nil {
		f.deletedIDs = make(map[string]bool)
	}
	for _, id := range ids {
		f.deletedIDs[id] = true
	}
}

func newTestNotifier(api discordAPI, now time.Time) *DiscordNotifier {
	n := newDiscordNotifier(api, MaxSendsPerMinute, testLogger())
	n.limiter = rate.NewLimiter(rate.Inf, 1)
	n.now = func() time.Time { return now }
	return n
}

func TestNotifierSendSplitsLongText(t *testing.T) {
	api := &fakeDiscordAPI{}
	n := newTestNotifier(api, time.Now())

	line := strings.Repeat("a", 1500)
	require.NoError(t, n.Send(context.Background(), "7", line+"\n"+line))

	require.Len(t, api.sent, 2)
	assert.Equal(t, line, api.sent[0])
	assert.Equal(t, line, api.sent[1])
}

func TestNotifierSendWrapsPlatformErrors(t *testing.T) {
	api := &fakeDiscordAPI{sendErr: errors.New("HTTP 403 Forbidden")}
	n := newTestNotifier(api, time.Now())

	err := n.Send(context.Background(), "7", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPlatform))
	assert.Contains(t, err.Error(), "403")
}

func TestNotifierSendHonoursContext(t *testing.T) {
	api := &fakeDiscordAPI{}
	n := newDiscordNotifier(api, 1, testLogger())
	n.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.NoError(t, n.Send(context.Background(), "7", "first"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, n.Send(ctx, "7", "second"))
	assert.Equal(t, []string{"first"}, api.sent)
}

func TestNotifierMention(t *testing.T) {
	api := &fakeDiscordAPI{users: map[string]*discordgo.User{"42": {ID: "42", Username: "grower"}}}
	n := newTestNotifier(api, time.Now())

	mention, err := n.Mention(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "<@42>", mention)

	mention, err = n.Mention(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "<@42>", mention)
	assert.Equal(t, 1, api.userCalls, "a resolved mention must be reused")

	_, err = n.Mention(context.Background(), "43")
	assert.True(t, errors.Is(err, ErrPlatform))
	_, err = n.Mention(context.Background(), "43")
	assert.Error(t, err)
	assert.Equal(t, 3, api.userCalls, "failed lookups must not be cached")
}

func TestNotifierSendTransientDeletesLater(t *testing.T) {
	api := &fakeDiscordAPI{}
	n := newTestNotifier(api, time.Now())

	require.NoError(t, n.SendTransient(context.Background(), "7", "Deleting all messages...", 10*time.Millisecond))

	assert.Eventually(t, func() bool {
		api.mutex.Lock()
		defer api.mutex.Unlock()
		return len(api.singles) == 1 && api.singles[0] == "m1"
	}, time.Second, 5*time.Millisecond)
}

func TestNotifierPurge(t *testing.T) {
	now := at(2026, 10, 19, 10, 0, 0)
	api := &fakeDiscordAPI{}
	for i := 0; i < 5; i++ {
		api.history = append(api.history, &discordgo.Message{
			ID:        fmt.Sprintf("r%d", i),
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
			Pinned:    i == 2,
		})
	}
	for i := 0; i < 2; i++ {
		api.history = append(api.history, &discordgo.Message{
			ID:        fmt.Sprintf("o%d", i),
			Timestamp: now.Add(-15 * 24 * time.Hour),
		})
	}
	n := newTestNotifier(api, now)

	deleted, err := n.Purge(context.Background(), "7", keepPinned, 3)
	require.NoError(t, err)

	assert.Equal(t, 6, deleted)
	assert.Equal(t, [][]string{{"r0", "r1"}, {"r3", "r4"}}, api.bulk)
	assert.Equal(t, []string{"o0", "o1"}, api.singles)
	assert.Equal(t, []string{"", "r2", "o0"}, api.listCalls)
}
