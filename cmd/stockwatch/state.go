package main

import (
	"sync"
	"time"
)

// TickReport summarizes one finished tick.
type TickReport struct {
	Wake            time.Time `json:"wake"`
	Finished        time.Time `json:"finished"`
	IncludedLines   int       `json:"includedLines"`
	FilteredLines   int       `json:"filteredLines"`
	FilteredPosted  bool      `json:"filteredPosted"`
	MatchedKeywords []string  `json:"matchedKeywords"`
	Error           string    `json:"error,omitempty"`
}

// State is the runtime state shared by the scheduler, the commands and the
// status API. Nothing here is persisted.
type State struct {
	mutex sync.RWMutex

	startupTime  time.Time
	nextWake     time.Time
	tickCount    int
	lastTick     *TickReport
	lastPart     *Partition
	lastScrapeAt time.Time
}

// NewState creates the state with the startup time set.
func NewState(now time.Time) *State {
	return &State{startupTime: now}
}

// SetNextWake records the instant the scheduler is sleeping towards.
func (s *State) SetNextWake(t time.Time) {
	s.mutex.Lock()
	s.nextWake = t
	s.mutex.Unlock()
}

// RecordPartition keeps the most recent scrape result. Older results are
// dropped.
func (s *State) RecordPartition(p Partition, at time.Time) {
	s.mutex.Lock()
	s.lastPart = &p
	s.lastScrapeAt = at
	s.mutex.Unlock()
}

// RecordTick stores the report of a finished tick.
func (s *State) RecordTick(report TickReport) {
	s.mutex.Lock()
	s.tickCount++
	s.lastTick = &report
	s.mutex.Unlock()
}

// StateView is a copy of State safe to hand out.
type StateView struct {
	StartupTime  time.Time   `json:"startupTime"`
	Uptime       string      `json:"uptime"`
	NextWake     time.Time   `json:"nextWake"`
	TickCount    int         `json:"tickCount"`
	LastTick     *TickReport `json:"lastTick,omitempty"`
	LastScrapeAt time.Time   `json:"lastScrapeAt"`
}

// View copies the current state.
func (s *State) View(now time.Time) StateView {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	v := StateView{
		StartupTime:  s.startupTime,
		Uptime:       FormatDuration(now.Sub(s.startupTime)),
		NextWake:     s.nextWake,
		TickCount:    s.tickCount,
		LastScrapeAt: s.lastScrapeAt,
	}
	if s.lastTick != nil {
		t := *s.lastTick
		v.LastTick = &t
	}
	return v
}

// LastPartition returns the most recent partition, if any.
func (s *State) LastPartition() (Partition, time.Time, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.lastPart == nil {
		return Partition{}, time.Time{}, false
	}
	return *s.lastPart, s.lastScrapeAt, true
}

// Healthy is false when the last tick ended with an error.
func (s *State) Healthy() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastTick == nil || s.lastTick.Error == ""
}
