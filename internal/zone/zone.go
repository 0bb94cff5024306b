// Package zone converts between wall-clock time in a named civil timezone and the
// absolute instants events are stored as.
//
// Every conversion goes through the zone's rule table at the moment of conversion.
// No numeric UTC offset is ever computed once and reused, so an 18:00 kick-off in
// March and one in November resolve to different UTC hours.
package zone

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host's zoneinfo
)

const (
	DefaultName        = "Europe/Berlin"
	civilDateSeparator = "."
)

var (
	ErrUnknownZone    = errors.New("unknown timezone")
	ErrIncorrectCivil = errors.New("incorrect civil date or time")
)

// Civil is a wall-clock date and time without a zone.
type Civil struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

func (c Civil) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", c.Year, c.Month, c.Day, c.Hour, c.Minute, c.Second)
}

// Date returns the civil date at midnight.
func (c Civil) Date() Civil {
	return Civil{Year: c.Year, Month: c.Month, Day: c.Day}
}

type Converter struct {
	loc *time.Location
}

func New(name string) (*Converter, error) {
	if name == "" {
		name = DefaultName
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownZone)
	}
	return &Converter{loc: loc}, nil
}

// MustNew is New for static zone names known to exist.
func MustNew(name string) *Converter {
	c, err := New(name)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Converter) Location() *time.Location {
	return c.loc
}

func (c *Converter) Name() string {
	return c.loc.String()
}

// ToAbsolute resolves a wall-clock time in the zone to a UTC instant.
// The hour skipped on spring forward and the one repeated on fall back are
// resolved the way time.Date resolves them.
func (c *Converter) ToAbsolute(civil Civil) time.Time {
	return time.Date(civil.Year, civil.Month, civil.Day, civil.Hour, civil.Minute, civil.Second, 0, c.loc).UTC()
}

func (c *Converter) ToCivil(t time.Time) Civil {
	local := t.In(c.loc)
	return Civil{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
	}
}

func (c *Converter) IsDaylightSaving(t time.Time) bool {
	return t.In(c.loc).IsDST()
}

// StartOfDay returns the instant of local midnight of the civil day containing t.
func (c *Converter) StartOfDay(t time.Time) time.Time {
	return c.ToAbsolute(c.ToCivil(t).Date())
}

func (c *Converter) Format(t time.Time, layout string) string {
	return t.In(c.loc).Format(layout)
}

// Parse reads a "DD.MM.YYYY" date and an optional "HH:MM" time as they appear on
// printed fixture lists.
func (c *Converter) Parse(date, clock string) (Civil, error) {
	parts := strings.Split(strings.TrimSpace(date), civilDateSeparator)
	if len(parts) != 3 {
		return Civil{}, fmt.Errorf("date %q: %w", date, ErrIncorrectCivil)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return Civil{}, fmt.Errorf("day %q: %w", parts[0], ErrIncorrectCivil)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Civil{}, fmt.Errorf("month %q: %w", parts[1], ErrIncorrectCivil)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return Civil{}, fmt.Errorf("year %q: %w", parts[2], ErrIncorrectCivil)
	}
	civil := Civil{Year: year, Month: time.Month(month), Day: day}

	if clock = strings.TrimSpace(clock); clock != "" {
		hm := strings.SplitN(clock, ":", 2)
		if len(hm) != 2 {
			return Civil{}, fmt.Errorf("time %q: %w", clock, ErrIncorrectCivil)
		}
		if civil.Hour, err = strconv.Atoi(hm[0]); err != nil {
			return Civil{}, fmt.Errorf("hour %q: %w", hm[0], ErrIncorrectCivil)
		}
		if civil.Minute, err = strconv.Atoi(hm[1]); err != nil {
			return Civil{}, fmt.Errorf("minute %q: %w", hm[1], ErrIncorrectCivil)
		}
	}

	if !civil.valid() {
		return Civil{}, fmt.Errorf("%s: %w", civil, ErrIncorrectCivil)
	}
	return civil, nil
}

// valid rejects values time.Date would silently normalize, like 31.02.
func (c Civil) valid() bool {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.Second < 0 || c.Second > 59 {
		return false
	}
	t := time.Date(c.Year, c.Month, c.Day, 0, 0, 0, 0, time.UTC)
	return t.Year() == c.Year && t.Month() == c.Month && t.Day() == c.Day
}
