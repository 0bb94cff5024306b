package ics

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	start := time.Date(2025, 4, 5, 16, 0, 0, 0, time.UTC)
	events := []storage.Event{
		{
			ID:          "e1",
			Title:       "Spiel gegen SV Nord",
			Description: "Spiele: A vs B",
			Location:    "Sporthalle",
			StartTime:   start,
			EndTime:     start.Add(2 * time.Hour),
			CreatedAt:   start.AddDate(0, -1, 0),
			UpdatedAt:   start.AddDate(0, -1, 0),
			Notification: storage.NotificationSettings{
				Enabled:       true,
				ReminderTimes: []storage.Reminder{{Hours: 24}, {Minutes: 30}},
			},
		},
		{
			ID:        "e2",
			Title:     "Training",
			StartTime: start.AddDate(0, 0, 2),
			EndTime:   start.AddDate(0, 0, 2).Add(time.Hour),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, events))

	cal, err := ical.ParseCalendar(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	parsed := cal.Events()
	require.Len(t, parsed, 2)

	ev := parsed[0]
	require.Equal(t, "e1", ev.Id())
	require.Equal(t, "Spiel gegen SV Nord", ev.GetProperty(ical.ComponentPropertySummary).Value)
	require.Equal(t, "Sporthalle", ev.GetProperty(ical.ComponentPropertyLocation).Value)
	at, err := ev.GetStartAt()
	require.NoError(t, err)
	require.True(t, at.Equal(start))
	require.Len(t, ev.Alarms(), 2)

	require.Nil(t, parsed[1].GetProperty(ical.ComponentPropertyLocation))
	require.Empty(t, parsed[1].Alarms())
}

func TestTrigger(t *testing.T) {
	require.Equal(t, "-PT24H", trigger(storage.Reminder{Hours: 24}))
	require.Equal(t, "-PT30M", trigger(storage.Reminder{Minutes: 30}))
	require.Equal(t, "-PT1H15M", trigger(storage.Reminder{Hours: 1, Minutes: 15}))
	require.Equal(t, "-PT0H", trigger(storage.Reminder{}))
}
