// Package schedule turns fixture lists into event drafts, one per match day.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/zone"
)

const (
	DefaultDuration = 2 * time.Hour
	DefaultLocation = "Siehe Spielplan"
)

var ErrNoTeam = errors.New("team is not set")

// Fixture is one match of a printed fixture list. Date is "DD.MM.YYYY" and
// Time "HH:MM", both wall-clock in the league's zone.
type Fixture struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	TeamA    string `json:"teamA"`
	TeamB    string `json:"teamB"`
	Location string `json:"location,omitempty"`
}

// MatchDay is every fixture of one team on one calendar date.
type MatchDay struct {
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Location  string    `json:"location"`
	Opponents string    `json:"opponents"`
	Matches   []Fixture `json:"matches"`
}

type Options struct {
	TeamID string `json:"teamId,omitempty"`
	// Duration of a match day, DefaultDuration when zero.
	Duration time.Duration `json:"duration,omitempty"`
	// VotingLead puts the voting deadline that long before the start. Zero means
	// no deadline.
	VotingLead     time.Duration                `json:"votingLead,omitempty"`
	InvitedPlayers []string                     `json:"invitedPlayers,omitempty"`
	IsOpenAccess   bool                         `json:"isOpenAccess"`
	Notification   storage.NotificationSettings `json:"notificationSettings"`
}

// GroupMatchDays keeps the fixtures team plays in and merges those on the same
// date. Days keep the order their first fixture had; time and location come from
// that first fixture.
func GroupMatchDays(fixtures []Fixture, team string) []MatchDay {
	var days []MatchDay
	index := make(map[string]int)
	for _, f := range fixtures {
		if f.TeamA != team && f.TeamB != team {
			continue
		}
		i, ok := index[f.Date]
		if !ok {
			i = len(days)
			index[f.Date] = i
			days = append(days, MatchDay{Date: f.Date, Time: f.Time, Location: f.Location})
		}
		days[i].Matches = append(days[i].Matches, f)
	}
	for i := range days {
		opponents := make([]string, 0, len(days[i].Matches))
		for _, m := range days[i].Matches {
			if m.TeamA == team {
				opponents = append(opponents, m.TeamB)
			} else {
				opponents = append(opponents, m.TeamA)
			}
		}
		days[i].Opponents = strings.Join(opponents, ", ")
	}
	return days
}

// Drafts builds one game draft per match day. Start times are resolved in the
// converter's zone on the match date itself, so summer and winter dates get
// their own offsets.
func Drafts(days []MatchDay, opts Options, z *zone.Converter) ([]app.Draft, error) {
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	invited := opts.InvitedPlayers
	if opts.IsOpenAccess {
		invited = nil
	}

	drafts := make([]app.Draft, 0, len(days))
	for _, day := range days {
		civil, err := z.Parse(day.Date, day.Time)
		if err != nil {
			return nil, fmt.Errorf("match day %s: %w", day.Date, err)
		}
		start := z.ToAbsolute(civil)

		d := app.Draft{
			Title:          "Spiel gegen " + day.Opponents,
			Type:           storage.TypeGame,
			Description:    describe(day.Matches),
			Location:       day.Location,
			TeamID:         opts.TeamID,
			StartTime:      start,
			EndTime:        start.Add(duration),
			InvitedPlayers: append([]string{}, invited...),
			IsOpenAccess:   opts.IsOpenAccess,
			Notification:   opts.Notification,
		}
		if d.Location == "" {
			d.Location = DefaultLocation
		}
		if opts.VotingLead > 0 {
			deadline := start.Add(-opts.VotingLead)
			d.VotingDeadline = &deadline
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// Derive groups fixtures of team and builds their drafts.
func Derive(fixtures []Fixture, team string, opts Options, z *zone.Converter) ([]app.Draft, error) {
	if team == "" {
		return nil, ErrNoTeam
	}
	return Drafts(GroupMatchDays(fixtures, team), opts, z)
}

func describe(matches []Fixture) string {
	pairs := make([]string, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, m.TeamA+" vs "+m.TeamB)
	}
	return "Spiele: " + strings.Join(pairs, ", ")
}
