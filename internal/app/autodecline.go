package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/deadline"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/worker"
	log "github.com/sirupsen/logrus"
)

type AutoDeclineResult struct {
	Declined             int  `json:"declined"`
	AutoDeclineProcessed bool `json:"autoDeclineProcessed"`
	// Transitioned is set only for the call that closed the event.
	Transitioned bool `json:"transitioned"`
}

// AutoDeclineNotice is emitted after a pass declined at least one player.
type AutoDeclineNotice struct {
	EventID   string    `json:"eventId"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"startTime"`
	Players   []string  `json:"players"`
	At        time.Time `json:"at"`
}

type Notifier interface {
	NotifyAutoDecline(ctx context.Context, notice AutoDeclineNotice) error
}

type SweepReport struct {
	Scanned      int `json:"scanned"`
	Transitioned int `json:"transitioned"`
	Declined     int `json:"declined"`
	Errors       int `json:"errors"`
}

// RunAutoDecline runs the voting deadline pass of one event at now. Running it
// on a closed event or before the deadline changes nothing.
func (a *App) RunAutoDecline(ctx context.Context, eventID string, now time.Time) (AutoDeclineResult, error) {
	var res deadline.Result
	e, err := a.update(ctx, eventID, func(e *storage.Event) error {
		res = deadline.Process(e, now)
		if !res.Transitioned {
			return storage.ErrNoChange
		}
		return nil
	})
	if errors.Is(err, storage.ErrNoChange) {
		return AutoDeclineResult{AutoDeclineProcessed: e.AutoDeclineProcessed}, nil
	}
	if err != nil {
		return AutoDeclineResult{}, err
	}

	log.WithFields(log.Fields{"event": eventID, "declined": len(res.Declined)}).Info("voting deadline passed")
	if len(res.Declined) > 0 && a.Notifier != nil {
		notice := AutoDeclineNotice{EventID: e.ID, Title: e.Title, StartTime: e.StartTime, Players: res.Declined, At: now.UTC()}
		if err := a.Notifier.NotifyAutoDecline(ctx, notice); err != nil {
			log.WithField("event", eventID).Errorf("failed to send auto decline notice: %v", err)
		}
	}
	return AutoDeclineResult{
		Declined:             len(res.Declined),
		AutoDeclineProcessed: e.AutoDeclineProcessed,
		Transitioned:         true,
	}, nil
}

// Sweep runs the auto-decline pass on every event whose deadline passed. A
// failing event is counted and left for the next sweep.
func (a *App) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	events, err := a.Storage.ListPendingAutoDecline(ctx, now)
	if err != nil {
		return SweepReport{}, fmt.Errorf("failed to list pending events: %w", err)
	}

	report := SweepReport{Scanned: len(events)}
	var mu sync.Mutex
	tasks := make([]worker.Task, 0, len(events))
	for _, e := range events {
		id := e.ID
		tasks = append(tasks, func(ctx context.Context) error {
			res, err := a.RunAutoDecline(ctx, id, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Errors++
				log.WithField("event", id).Errorf("auto decline failed: %v", err)
				return err
			}
			if res.Transitioned {
				report.Transitioned++
			}
			report.Declined += res.Declined
			return nil
		})
	}
	err = worker.Run(ctx, tasks, a.config.SweepWorkers, a.config.SweepMaxErrors)

	log.WithFields(log.Fields{
		"scanned":      report.Scanned,
		"transitioned": report.Transitioned,
		"declined":     report.Declined,
		"errors":       report.Errors,
	}).Info("sweep finished")
	return report, err
}
