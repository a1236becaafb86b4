// Package timeidx decides which candle row the loop evaluates on each tick.
//
// The index is a cursor into the candle table: -1 is the most recent closed
// candle, more negative values mean the loop is walking a backlog.
package timeidx

import (
	"math"
	"time"
)

const (
	// CaughtUp: курсор указывает на последнюю закрытую свечу.
	CaughtUp = -1
	// MaxBacklog: граница, после которой отставание режется до BacklogCap.
	MaxBacklog = -20
	// BacklogCap: максимальная глубина одного прыжка назад.
	BacklogCap = -21

	candleSeconds = 60
)

// DefaultEpoch: откуда считаем дрейф на первом запуске.
var DefaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// State живёт только в памяти и заново создаётся при каждом запуске.
type State struct {
	LastTimestamp time.Time
	Index         int
	Drift         time.Duration
	RawIndex      int
}

// NewState returns the state of a fresh run: last timestamp unset and the
// cursor believing it is caught up, so the first tick measures the real gap.
func NewState() State {
	return State{Index: CaughtUp}
}

// CaughtUp reports whether the cursor points at the live candle.
func (s State) CaughtUp() bool { return s.Index == CaughtUp }

type Synchronizer struct {
	epoch time.Time
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{epoch: DefaultEpoch}
}

// ComputeIndex returns the next state for the tick happening at now.
func (s *Synchronizer) ComputeIndex(prev State, now time.Time) State {
	last := prev.LastTimestamp
	if last.IsZero() {
		last = s.epoch
	}

	lastSec := last.Unix()
	nowSec := now.Unix()
	drift := nowSec - lastSec
	if drift < 0 {
		drift = 0
	}

	nowFloor := nowSec - mod(nowSec, candleSeconds)
	raw := int(math.Floor(float64(lastSec-nowFloor)/candleSeconds)) + 1

	next := State{
		LastTimestamp: prev.LastTimestamp,
		Drift:         time.Duration(drift) * time.Second,
		RawIndex:      raw,
	}
	if prev.Index == CaughtUp {
		next.Index = adoptBacklog(raw)
	} else {
		next.Index = walkForward(prev.Index)
	}
	return next
}

// Sleep returns the time left until the next minute boundary.
func (s *Synchronizer) Sleep(st State) time.Duration {
	drift := int64(st.Drift / time.Second)
	return time.Duration(candleSeconds-mod(drift, candleSeconds)) * time.Second
}

func adoptBacklog(raw int) int {
	switch {
	case raw < CaughtUp && raw > MaxBacklog:
		return raw
	case raw <= MaxBacklog:
		return BacklogCap
	}
	return CaughtUp
}

func walkForward(idx int) int {
	switch {
	case idx == 0:
		return MaxBacklog
	case idx < CaughtUp:
		if idx < BacklogCap {
			return BacklogCap + 1
		}
		return idx + 1
	}
	return CaughtUp
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
