package correction

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/deadline"
	"github.com/moklem/tv-herren-bereich/internal/storage"
)

// Tags are stored in event ledgers and must never be renamed.
const (
	TagTimezoneDSTFix   = "timezone-dst-fix"
	TagAutoDeclineReset = "auto-decline-reset"
)

var ErrUnknownTag = errors.New("unknown correction tag")

// dstShift compensates conversions that reused a winter offset for summer
// dates and so stored every time one hour early.
const dstShift = time.Hour

// TimezoneDSTFix moves start, end and voting deadline of every event not yet
// carrying the tag one hour later.
func TimezoneDSTFix() Correction {
	return Correction{
		Tag:         TagTimezoneDSTFix,
		Description: "shift start, end and voting deadline by one hour to undo fixed-offset conversion",
		Select:      func(*storage.Event) bool { return true },
		Transform: func(e *storage.Event) error {
			e.StartTime = e.StartTime.Add(dstShift)
			e.EndTime = e.EndTime.Add(dstShift)
			if e.VotingDeadline != nil {
				d := e.VotingDeadline.Add(dstShift)
				e.VotingDeadline = &d
			}
			return nil
		},
	}
}

// AutoDeclineReset removes system declines from events that have not started
// at now and reopens their voting, so the deadline pass runs again on the
// corrected deadline. Declines a player entered are kept.
func AutoDeclineReset(now time.Time) Correction {
	return Correction{
		Tag:         TagAutoDeclineReset,
		Description: "remove auto declines from future events and reopen voting",
		Select: func(e *storage.Event) bool {
			return e.StartTime.After(now) && autoDeclines(e) > 0
		},
		Changes: autoDeclines,
		Transform: func(e *storage.Event) error {
			e.RemoveResponses(deadline.IsAutoDecline)
			e.DeclinedPlayers = e.DeclinedSet()
			deadline.Reopen(e)
			return nil
		},
	}
}

var registry = map[string]func(now time.Time) Correction{
	TagTimezoneDSTFix:   func(time.Time) Correction { return TimezoneDSTFix() },
	TagAutoDeclineReset: AutoDeclineReset,
}

// Lookup returns the built-in correction for tag, evaluated at now.
func Lookup(tag string, now time.Time) (Correction, error) {
	build, ok := registry[tag]
	if !ok {
		return Correction{}, fmt.Errorf("%q: %w", tag, ErrUnknownTag)
	}
	return build(now), nil
}

func Tags() []string {
	tags := make([]string, 0, len(registry))
	for tag := range registry {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func autoDeclines(e *storage.Event) int {
	n := 0
	for _, r := range e.PlayerResponses {
		if deadline.IsAutoDecline(r) {
			n++
		}
	}
	return n
}
