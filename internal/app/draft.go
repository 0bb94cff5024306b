package app

import (
	"context"
	"fmt"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/validator"
	log "github.com/sirupsen/logrus"
)

// Draft is one event as produced by schedule derivation, before it is stored.
type Draft struct {
	Title          string                       `json:"title" yaml:"title" validate:"maxlen:200"`
	Type           storage.EventType            `json:"type" yaml:"type" validate:"in:Game,Training,Other"`
	Description    string                       `json:"description" yaml:"description" validate:"maxlen:2000"`
	Location       string                       `json:"location" yaml:"location" validate:"maxlen:200"`
	TeamID         string                       `json:"teamId,omitempty" yaml:"teamId"`
	StartTime      time.Time                    `json:"startTime" yaml:"startTime" validate:"required"`
	EndTime        time.Time                    `json:"endTime" yaml:"endTime" validate:"required"`
	VotingDeadline *time.Time                   `json:"votingDeadline,omitempty" yaml:"votingDeadline"`
	InvitedPlayers []string                     `json:"invitedPlayers" yaml:"invitedPlayers" validate:"minlen:1|maxlen:64"`
	IsOpenAccess   bool                         `json:"isOpenAccess" yaml:"isOpenAccess"`
	Notification   storage.NotificationSettings `json:"notificationSettings" yaml:"notificationSettings" validate:"nested"`
}

// DraftFailure tells which draft could not be created and why.
type DraftFailure struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

func (f DraftFailure) Error() string {
	return fmt.Sprintf("draft %d: %s", f.Index, f.Err)
}

func (f DraftFailure) Unwrap() error {
	return f.Err
}

func (d Draft) toEvent() storage.Event {
	e := storage.Event{
		Title:          d.Title,
		Type:           d.Type,
		Description:    d.Description,
		Location:       d.Location,
		TeamID:         d.TeamID,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
		IsOpenAccess:   d.IsOpenAccess,
		InvitedPlayers: append([]string{}, d.InvitedPlayers...),
		Notification:   d.Notification,
	}
	if d.VotingDeadline != nil {
		deadline := *d.VotingDeadline
		e.VotingDeadline = &deadline
	}
	return e
}

// CreateEvents stores each draft on its own. A failing draft does not undo the
// drafts stored before it; the ids of stored events come back in draft order
// together with the failures.
//
// A voting deadline that already passed is stored as is: the next sweep closes it.
func (a *App) CreateEvents(ctx context.Context, drafts []Draft) ([]string, []DraftFailure) {
	ids := make([]string, 0, len(drafts))
	var failures []DraftFailure
	for i, d := range drafts {
		if d.Type == "" {
			d.Type = storage.TypeOther
		}
		if err := validator.Validate(d); err != nil {
			failures = append(failures, DraftFailure{Index: i, Err: err})
			continue
		}
		e := d.toEvent()
		if err := a.Storage.AddEvent(ctx, &e); err != nil {
			log.WithField("draft", i).Warnf("failed to create event: %v", err)
			failures = append(failures, DraftFailure{Index: i, Err: err})
			continue
		}
		ids = append(ids, e.ID)
	}
	log.WithField("created", len(ids)).WithField("failed", len(failures)).Info("events created")
	return ids, failures
}
