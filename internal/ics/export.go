// Package ics exports events as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"strings"

	ical "github.com/arran4/golang-ical"
	"github.com/moklem/tv-herren-bereich/internal/storage"
)

const productID = "-//tv-herren-bereich//events//DE"

// Export writes events as a VCALENDAR. Times are written in UTC. Enabled
// reminders become display alarms.
func Export(w io.Writer, events []storage.Event) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, e := range events {
		ev := cal.AddEvent(e.ID)
		ev.SetDtStampTime(e.UpdatedAt)
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetModifiedAt(e.UpdatedAt)
		ev.SetStartAt(e.StartTime)
		ev.SetEndAt(e.EndTime)
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
		if !e.Notification.Enabled {
			continue
		}
		for _, r := range e.Notification.ReminderTimes {
			alarm := ev.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(trigger(r))
			if e.Notification.CustomMessage != "" {
				alarm.SetProperty(ical.ComponentPropertyDescription, e.Notification.CustomMessage)
			} else {
				alarm.SetProperty(ical.ComponentPropertyDescription, e.Title)
			}
		}
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// trigger formats a reminder as a negative RFC 5545 duration, e.g. -PT24H30M.
func trigger(r storage.Reminder) string {
	var b strings.Builder
	b.WriteString("-PT")
	if r.Hours > 0 || r.Minutes == 0 {
		fmt.Fprintf(&b, "%dH", r.Hours)
	}
	if r.Minutes > 0 {
		fmt.Fprintf(&b, "%dM", r.Minutes)
	}
	return b.String()
}
