package strategy

import (
	"fmt"
	"time"

	"wallex_bot/internal/models"
)

// EpisodeState: вариант эпизода: нет гипотезы / ждём подтверждения / подтверждён.
type EpisodeState int

const (
	EpisodeNone EpisodeState = iota
	EpisodePending
	EpisodeConfirmed
)

func (s EpisodeState) String() string {
	switch s {
	case EpisodePending:
		return "pending"
	case EpisodeConfirmed:
		return "confirmed"
	}
	return "none"
}

// Episode: непрерывный отрезок свечей с одной направленной гипотезой.
// Start: якорная свеча первой стадии, End: последняя оценённая свеча.
type Episode struct {
	State EpisodeState
	Side  models.Side
	Start time.Time
	End   time.Time
}

func (e Episode) Confirmed() bool { return e.State == EpisodeConfirmed }
func (e Episode) Open() bool      { return e.State != EpisodeNone }

// Candles resolves the episode range against the current table.
func (e Episode) Candles(t *models.Table) []models.Candle {
	if !e.Open() {
		return nil
	}
	return t.Range(e.Start, e.End)
}

func (e Episode) String() string {
	if !e.Open() {
		return "none"
	}
	return fmt.Sprintf("%s %s [%s .. %s]", e.State, e.Side,
		e.Start.UTC().Format("15:04"), e.End.UTC().Format("15:04"))
}

// transitions

func none() Episode { return Episode{} }

func pending(side models.Side, at time.Time) Episode {
	return Episode{State: EpisodePending, Side: side, Start: at, End: at}
}

func (e Episode) extend(at time.Time) Episode {
	if at.After(e.End) {
		e.End = at
	}
	return e
}

func (e Episode) confirm(at time.Time) Episode {
	e = e.extend(at)
	e.State = EpisodeConfirmed
	return e
}
