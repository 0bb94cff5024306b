package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSweepWorkers    = 4
	defaultConflictRetries = 5
)

type Config struct {
	// SweepWorkers is the number of events auto-declined in parallel by Sweep.
	SweepWorkers int
	// SweepMaxErrors stops a sweep after that many failed events, 0 means never.
	SweepMaxErrors int
	// ConflictRetries bounds the attempts of a write that keeps hitting ErrConflict.
	ConflictRetries uint
	// RetryInterval is the first pause between conflicting attempts.
	RetryInterval time.Duration
}

// App owns every change of event records. Writes go through Storage.UpdateEvent,
// so each one is a single atomic read-modify-write of one event.
type App struct {
	Storage  storage.Storage
	Zone     *zone.Converter
	Notifier Notifier

	config Config
	now    func() time.Time
}

func New(s storage.Storage, z *zone.Converter, config Config) *App {
	if config.SweepWorkers <= 0 {
		config.SweepWorkers = defaultSweepWorkers
	}
	if config.ConflictRetries == 0 {
		config.ConflictRetries = defaultConflictRetries
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 20 * time.Millisecond
	}
	return &App{Storage: s, Zone: z, config: config, now: time.Now}
}

func (a *App) GetEvent(ctx context.Context, id string) (storage.Event, error) {
	return a.Storage.GetEvent(ctx, id)
}

// ListEvents returns events starting in [from:to).
func (a *App) ListEvents(ctx context.Context, from, to time.Time) ([]storage.Event, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("list from %s to %s: %w", from, to, storage.ErrIncorrectEventTime)
	}
	return a.Storage.ListEvents(ctx, from, to)
}

// EventsForDay returns the events starting on the civil day of date in the app's zone.
func (a *App) EventsForDay(ctx context.Context, date time.Time) ([]storage.Event, error) {
	return a.EventsOnDate(ctx, a.Zone.ToCivil(date))
}

// EventsOnDate returns the events starting on the given calendar date in the
// app's zone. The clock part of day is ignored.
func (a *App) EventsOnDate(ctx context.Context, day zone.Civil) ([]storage.Event, error) {
	day = day.Date()
	from := a.Zone.ToAbsolute(day)
	day.Day++
	return a.Storage.ListEvents(ctx, from, a.Zone.ToAbsolute(day))
}

// update runs an atomic update and repeats it while another writer wins the race.
func (a *App) update(ctx context.Context, id string, m storage.Mutator) (storage.Event, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.RetryInterval

	attempt := 0
	return backoff.Retry(ctx, func() (storage.Event, error) {
		attempt++
		e, err := a.Storage.UpdateEvent(ctx, id, m)
		if errors.Is(err, storage.ErrConflict) {
			log.WithField("event", id).WithField("attempt", attempt).Debug("conflicting update, retrying")
			return e, err
		}
		if err != nil {
			return e, backoff.Permanent(err)
		}
		return e, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(a.config.ConflictRetries))
}
