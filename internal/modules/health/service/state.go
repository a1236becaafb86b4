package service

import (
	"sync/atomic"
	"time"
)

// State: то, что видно снаружи через /healthz. Пишет только цикл торговли.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastTickUnix atomic.Int64 // unix seconds
	index        atomic.Int64
	episode      atomic.Value // string
	lastOutcome  atomic.Value // string
	trackedOrder atomic.Value // string
	failedTicks  atomic.Int64
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	s.index.Store(-1)
	s.episode.Store("none")
	s.lastOutcome.Store("")
	s.trackedOrder.Store("")
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) SetIndex(i int) { s.index.Store(int64(i)) }
func (s *State) Index() int     { return int(s.index.Load()) }

func (s *State) SetEpisode(e string) { s.episode.Store(e) }
func (s *State) Episode() string     { return s.episode.Load().(string) }

func (s *State) SetOutcome(o string) { s.lastOutcome.Store(o) }
func (s *State) Outcome() string     { return s.lastOutcome.Load().(string) }

func (s *State) SetTrackedOrder(id string) { s.trackedOrder.Store(id) }
func (s *State) TrackedOrder() string      { return s.trackedOrder.Load().(string) }

func (s *State) TickFailed()        { s.failedTicks.Add(1) }
func (s *State) FailedTicks() int64 { return s.failedTicks.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
