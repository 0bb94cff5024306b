package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/app"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	"github.com/teambition/rrule-go"
)

const (
	DefaultTrainingTitle = "Training"
	// MaxTrainings caps the drafts of one series.
	MaxTrainings = 200
)

var ErrIncorrectRule = errors.New("incorrect recurrence rule")

// TrainingSeries is a recurring training. Rule is an RRULE body such as
// "FREQ=WEEKLY;BYDAY=TU,TH"; it needs COUNT, UNTIL or the Until date.
type TrainingSeries struct {
	Title    string `json:"title,omitempty"`
	Location string `json:"location,omitempty"`
	// First is the "DD.MM.YYYY" date of the first training, Time its "HH:MM".
	First string `json:"first"`
	Time  string `json:"time"`
	// Until is the last possible date, inclusive.
	Until  string   `json:"until,omitempty"`
	Rule   string   `json:"rule"`
	Except []string `json:"except,omitempty"`
}

// Trainings expands the series into training drafts. Occurrences keep their
// wall clock time in the converter's zone across daylight saving changes.
func Trainings(s TrainingSeries, opts Options, z *zone.Converter) ([]app.Draft, error) {
	first, err := z.Parse(s.First, s.Time)
	if err != nil {
		return nil, fmt.Errorf("first training: %w", err)
	}
	option, err := rrule.StrToROption(s.Rule)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %v: %w", s.Rule, err, ErrIncorrectRule)
	}
	option.Dtstart = z.ToAbsolute(first).In(z.Location())
	if s.Until != "" {
		until, err := z.Parse(s.Until, "")
		if err != nil {
			return nil, fmt.Errorf("until: %w", err)
		}
		until.Day++
		option.Until = z.ToAbsolute(until).Add(-time.Second).In(z.Location())
	}
	if option.Count == 0 && option.Until.IsZero() {
		return nil, fmt.Errorf("rule %q has no end: %w", s.Rule, ErrIncorrectRule)
	}
	if option.Count > MaxTrainings {
		return nil, fmt.Errorf("%d trainings, at most %d: %w", option.Count, MaxTrainings, ErrIncorrectRule)
	}
	r, err := rrule.NewRRule(*option)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %v: %w", s.Rule, err, ErrIncorrectRule)
	}

	set := rrule.Set{}
	set.RRule(r)
	for _, date := range s.Except {
		civil, err := z.Parse(date, s.Time)
		if err != nil {
			return nil, fmt.Errorf("except: %w", err)
		}
		set.ExDate(z.ToAbsolute(civil).In(z.Location()))
	}

	occurrences, err := firstOccurrences(&set, MaxTrainings)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", s.Rule, err)
	}

	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}
	invited := opts.InvitedPlayers
	if opts.IsOpenAccess {
		invited = nil
	}
	title := s.Title
	if title == "" {
		title = DefaultTrainingTitle
	}

	drafts := make([]app.Draft, 0, len(occurrences))
	for _, o := range occurrences {
		start := o.UTC()
		d := app.Draft{
			Title:          title,
			Type:           storage.TypeTraining,
			Location:       s.Location,
			TeamID:         opts.TeamID,
			StartTime:      start,
			EndTime:        start.Add(duration),
			InvitedPlayers: append([]string{}, invited...),
			IsOpenAccess:   opts.IsOpenAccess,
			Notification:   opts.Notification,
		}
		if opts.VotingLead > 0 {
			deadline := start.Add(-opts.VotingLead)
			d.VotingDeadline = &deadline
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// firstOccurrences stops as soon as the set yields more than limit times.
func firstOccurrences(set *rrule.Set, limit int) ([]time.Time, error) {
	next := set.Iterator()
	occurrences := make([]time.Time, 0, limit)
	for {
		t, ok := next()
		if !ok {
			return occurrences, nil
		}
		if len(occurrences) == limit {
			return nil, fmt.Errorf("more than %d trainings: %w", limit, ErrIncorrectRule)
		}
		occurrences = append(occurrences, t)
	}
}
