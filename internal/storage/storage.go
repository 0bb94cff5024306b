package storage

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrDuplicateEventID   = errors.New("event with same ID exists")
	ErrNotFoundEvent      = errors.New("event not found")
	ErrPlayerNotInvited   = errors.New("player is not invited to event")
	ErrIncorrectEventTime = errors.New("incorrect event time")
	ErrIncorrectStatus    = errors.New("incorrect response status")
	ErrConflict           = errors.New("event was modified concurrently")
	// ErrNoChange is returned by a Mutator to leave the record untouched.
	ErrNoChange = errors.New("no change")
)

// Mutator changes an event inside an atomic read-modify-write. It must not keep
// references to the event after returning.
type Mutator func(e *Event) error

type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	AddEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	// ListEvents selects events starting in [from:to).
	ListEvents(ctx context.Context, from time.Time, to time.Time) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	// ListPendingAutoDecline selects events whose voting deadline is at or before now
	// and which have not been through the auto-decline pass.
	ListPendingAutoDecline(ctx context.Context, now time.Time) ([]Event, error)
	// UpdateEvent applies m to the current record and writes the result only if the
	// record was not changed in between, otherwise it fails with ErrConflict.
	UpdateEvent(ctx context.Context, id string, m Mutator) (Event, error)
}

// ValidateTimes checks the time fields of an event before it is stored.
func ValidateTimes(e *Event) error {
	if e.StartTime.IsZero() {
		return ErrIncorrectEventTime
	}
	if !e.EndTime.After(e.StartTime) {
		return ErrIncorrectEventTime
	}
	return nil
}

// PrepareNew fills in the fields every backend sets on insert.
func PrepareNew(e *Event, now time.Time) {
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	if e.VotingDeadline != nil {
		d := e.VotingDeadline.UTC()
		e.VotingDeadline = &d
	}
	e.AutoDeclineProcessed = false
	e.FixesApplied = make([]string, 0)
	e.Version = 1
	e.CreatedAt = now.UTC()
	e.UpdatedAt = e.CreatedAt
	e.Normalize()
}

// Apply runs the shared part of UpdateEvent on a copy of the stored record: heal
// a corrupted derived set, run the mutator, re-derive, bump the version.
// It returns ErrNoChange untouched so backends can skip the write.
func Apply(current Event, m Mutator, now time.Time) (Event, error) {
	next := current.Clone()
	if next.Normalize() {
		log.WithField("event", next.ID).
			WithField("declinedPlayers", current.DeclinedPlayers).
			Warn("declined players disagree with responses, recomputed")
	}
	if err := m(&next); err != nil {
		return current, err
	}
	if err := ValidateTimes(&next); err != nil {
		return current, err
	}
	next.StartTime = next.StartTime.UTC()
	next.EndTime = next.EndTime.UTC()
	if next.VotingDeadline != nil {
		d := next.VotingDeadline.UTC()
		next.VotingDeadline = &d
	}
	next.Normalize()
	next.ID = current.ID
	next.Version = current.Version + 1
	next.UpdatedAt = now.UTC()
	return next, nil
}
