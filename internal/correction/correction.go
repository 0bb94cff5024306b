// Package correction repairs stored events after a defect is found.
//
// Each correction has a tag. A corrected event gets the tag appended to its
// FixesApplied ledger in the same write as the repair, and an event holding the
// tag is never touched by that correction again. Running a correction twice is
// therefore safe, also after a run stopped half way.
package correction

import (
	"context"
	"errors"
	"fmt"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	log "github.com/sirupsen/logrus"
)

var ErrEmptyTag = errors.New("correction tag is empty")

type Correction struct {
	Tag         string
	Description string
	// Select reports whether the event has the defect.
	Select func(e *storage.Event) bool
	// Transform repairs the event in place.
	Transform func(e *storage.Event) error
	// Changes counts the items Transform will change in the selected event,
	// e.g. reset players. Optional.
	Changes func(e *storage.Event) int
}

type Failure struct {
	EventID string `json:"eventId" yaml:"eventId"`
	Err     error  `json:"-" yaml:"-"`
	Reason  string `json:"reason" yaml:"reason"`
}

type Report struct {
	Tag     string `json:"tag" yaml:"tag"`
	DryRun  bool   `json:"dryRun" yaml:"dryRun"`
	Scanned int    `json:"scanned" yaml:"scanned"`
	Fixed   int    `json:"fixed" yaml:"fixed"`
	Skipped int    `json:"skipped" yaml:"skipped"`
	Errors  int    `json:"errors" yaml:"errors"`
	// Changed sums Correction.Changes over fixed events.
	Changed  int       `json:"changed" yaml:"changed"`
	Failures []Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
	FixedIDs []string  `json:"fixedIds,omitempty" yaml:"fixedIds,omitempty"`
}

// Progress is called after each scanned event.
type Progress func(done, total int)

type Runner struct {
	Storage storage.Storage
	// DryRun evaluates the correction on copies and writes nothing.
	DryRun   bool
	Progress Progress
}

func NewRunner(s storage.Storage) *Runner {
	return &Runner{Storage: s}
}

// Apply scans all events and repairs the selected ones. Failures of single
// events are collected in the report. The returned error is set only when the
// scan itself failed or ctx was cancelled; the report then covers the events
// handled before.
func (r *Runner) Apply(ctx context.Context, c Correction) (Report, error) {
	report := Report{Tag: c.Tag, DryRun: r.DryRun}
	if c.Tag == "" {
		return report, ErrEmptyTag
	}
	logger := log.WithField("tag", c.Tag)

	events, err := r.Storage.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to scan events: %w", err)
	}
	logger.WithField("events", len(events)).Info("correction started")

	for i := range events {
		if err := ctx.Err(); err != nil {
			logger.Warnf("correction stopped after %d of %d events", i, len(events))
			return report, err
		}
		report.Scanned++
		r.applyOne(ctx, c, &events[i], &report)
		if r.Progress != nil {
			r.Progress(i+1, len(events))
		}
	}

	logger.WithFields(log.Fields{
		"scanned": report.Scanned,
		"fixed":   report.Fixed,
		"skipped": report.Skipped,
		"errors":  report.Errors,
		"changed": report.Changed,
	}).Info("correction finished")
	return report, nil
}

func (r *Runner) applyOne(ctx context.Context, c Correction, e *storage.Event, report *Report) {
	if e.HasFix(c.Tag) || !c.Select(e) {
		report.Skipped++
		return
	}

	if r.DryRun {
		preview := e.Clone()
		changed := c.changes(&preview)
		if err := c.Transform(&preview); err != nil {
			report.fail(e.ID, err)
			return
		}
		report.fixed(e.ID, changed)
		return
	}

	// The stored record may have changed since the scan, so both checks run again
	// inside the atomic update.
	var changed int
	_, err := r.Storage.UpdateEvent(ctx, e.ID, func(current *storage.Event) error {
		if current.HasFix(c.Tag) || !c.Select(current) {
			return storage.ErrNoChange
		}
		changed = c.changes(current)
		if err := c.Transform(current); err != nil {
			return err
		}
		current.AddFix(c.Tag)
		return nil
	})
	switch {
	case errors.Is(err, storage.ErrNoChange):
		report.Skipped++
	case err != nil:
		log.WithField("tag", c.Tag).WithField("event", e.ID).Errorf("correction failed: %v", err)
		report.fail(e.ID, err)
	default:
		report.fixed(e.ID, changed)
	}
}

func (c Correction) changes(e *storage.Event) int {
	if c.Changes == nil {
		return 0
	}
	return c.Changes(e)
}

func (r *Report) fixed(id string, changed int) {
	r.Fixed++
	r.Changed += changed
	r.FixedIDs = append(r.FixedIDs, id)
}

func (r *Report) fail(id string, err error) {
	r.Errors++
	r.Failures = append(r.Failures, Failure{EventID: id, Err: err, Reason: err.Error()})
}
