package main

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

func testLogger() *Logger {
	return NewLogger(io.Discard, LogDebug)
}

func testErrorSystem() *ErrorSystem {
	es := NewErrorSystem(testLogger(), 10)
	es.exit = func(int) {}
	return es
}

type sentMessage struct {
	ChannelID string
	Text      string
	TTL       time.Duration
}

type fakeNotifier struct {
	mutex      sync.Mutex
	sent       []sentMessage
	sendErr    error
	mentionErr error
	purged     int
	purgeErr   error
	purgeCalls int
}

func (f *fakeNotifier) Send(_ context.Context, channelID, text string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Text: text})
	return nil
}

func (f *fakeNotifier) SendTransient(_ context.Context, channelID, text string, ttl time.Duration) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChannelID: channelID, Text: text, TTL: ttl})
	return nil
}

func (f *fakeNotifier) Mention(_ context.Context, userID string) (string, error) {
	if f.mentionErr != nil {
		return "", f.mentionErr
	}
	return "<@" + userID + ">", nil
}

func (f *fakeNotifier) Purge(_ context.Context, _ string, _ func(*discordgo.Message) bool, _ int) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.purgeCalls++
	return f.purged, f.purgeErr
}

func (f *fakeNotifier) texts() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

// fakeSource returns err for its first failures calls, then snapshot.
// With failures at zero err is returned on every call.
type fakeSource struct {
	snapshot Snapshot
	err      error
	failures int
	panicMsg string
	calls    int
}

func (f *fakeSource) Scrape(context.Context) (Snapshot, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.failures > 0 {
		if f.calls <= f.failures {
			return nil, f.err
		}
		return f.snapshot, nil
	}
	return f.snapshot, f.err
}

// stockPage is a trimmed copy of the stock page layout.
const stockPage = `<!DOCTYPE html>
<html><body>
<main>
  <div class="grid">
    <div>
      <h2 class="text-xl font-bold mb-2 text-center">EGG STOCK</h2>
      <ul>
        <li><span>Blue Egg</span><span>x2</span></li>
      </ul>
    </div>
    <div>
      <h2 class="text-xl font-bold mb-2 text-center">SEED STOCK</h2>
      <ul>
        <li><span>Carrot</span><span>x5</span></li>
        <li><span>Tomatox3</span></li>
        <li><span>Corn <span>x4</span></span></li>
        <li>no spans here</li>
      </ul>
    </div>
    <div>
      <h2 class="text-xl font-bold mb-2 text-center">GEAR STOCK</h2>
      <ul></ul>
    </div>
  </div>
  <h2 class="text-xl font-bold mb-2 text-center">ORPHAN</h2>
  <h2 class="other">NOT A SECTION</h2>
</main>
</body></html>`
