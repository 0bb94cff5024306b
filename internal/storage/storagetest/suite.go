// Package storagetest holds the behaviour every storage.Storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/stretchr/testify/require"
)

var initDate = time.Date(2300, 1, 1, 18, 0, 0, 0, time.UTC)

func NewEvent() storage.Event {
	deadline := initDate.Add(-48 * time.Hour)
	return storage.Event{
		Title:          "Spiel gegen TV Musterstadt",
		Type:           storage.TypeGame,
		Description:    "Spiele: A vs B",
		Location:       "Sporthalle",
		TeamID:         "team-1",
		StartTime:      initDate,
		EndTime:        initDate.Add(2 * time.Hour),
		VotingDeadline: &deadline,
		InvitedPlayers: []string{"p1", "p2", "p3"},
		Notification: storage.NotificationSettings{
			Enabled:       true,
			ReminderTimes: []storage.Reminder{{Hours: 24}},
			CustomMessage: "bitte abstimmen",
		},
	}
}

// Run executes the shared suite. create must return an empty, connected storage.
func Run(t *testing.T, create func(t *testing.T) storage.Storage) {
	t.Helper()
	ctx := context.Background()

	t.Run("add and get event", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		e.FixesApplied = []string{"stale"}
		require.NoError(t, s.AddEvent(ctx, &e))
		require.NotEmpty(t, e.ID)

		actual, err := s.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		CompareEvents(t, e, actual)
		require.Empty(t, actual.FixesApplied)
		require.False(t, actual.AutoDeclineProcessed)
		require.Equal(t, int64(1), actual.Version)
	})

	t.Run("add event with same id", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		require.NoError(t, s.AddEvent(ctx, &e))
		require.ErrorIs(t, s.AddEvent(ctx, &e), storage.ErrDuplicateEventID)
	})

	t.Run("incorrect event time", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		e.EndTime = e.StartTime.Add(-time.Minute)
		require.ErrorIs(t, s.AddEvent(ctx, &e), storage.ErrIncorrectEventTime)
	})

	t.Run("get not exist event", func(t *testing.T) {
		s := create(t)
		_, err := s.GetEvent(ctx, "___not_exists___")
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
	})

	t.Run("update event", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		require.NoError(t, s.AddEvent(ctx, &e))

		updated, err := s.UpdateEvent(ctx, e.ID, func(e *storage.Event) error {
			e.SetResponse(storage.Response{PlayerID: "p1", Status: storage.StatusDeclined, Reason: "ill", RespondedAt: initDate})
			e.SetResponse(storage.Response{PlayerID: "p2", Status: storage.StatusAccepted, RespondedAt: initDate})
			e.AutoDeclineProcessed = true
			e.AddFix("some-fix")
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, int64(2), updated.Version)
		require.Equal(t, []string{"p1"}, updated.DeclinedPlayers)

		actual, err := s.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		CompareEvents(t, updated, actual)
		require.True(t, actual.AutoDeclineProcessed)
		require.Equal(t, []string{"some-fix"}, actual.FixesApplied)
		require.Equal(t, []string{"p1"}, actual.DeclinedPlayers)
		r, ok := actual.Response("p1")
		require.True(t, ok)
		require.Equal(t, "ill", r.Reason)
	})

	t.Run("update not exist event", func(t *testing.T) {
		s := create(t)
		_, err := s.UpdateEvent(ctx, "___not_exists___", func(e *storage.Event) error { return nil })
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
	})

	t.Run("update without change", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		require.NoError(t, s.AddEvent(ctx, &e))
		_, err := s.UpdateEvent(ctx, e.ID, func(e *storage.Event) error {
			e.Title = "ignored"
			return storage.ErrNoChange
		})
		require.ErrorIs(t, err, storage.ErrNoChange)

		actual, err := s.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		require.Equal(t, e.Title, actual.Title)
		require.Equal(t, int64(1), actual.Version)
	})

	t.Run("failed mutator keeps record", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		require.NoError(t, s.AddEvent(ctx, &e))
		boom := errors.New("boom")
		_, err := s.UpdateEvent(ctx, e.ID, func(e *storage.Event) error {
			e.AutoDeclineProcessed = true
			return boom
		})
		require.ErrorIs(t, err, boom)

		actual, err := s.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		require.False(t, actual.AutoDeclineProcessed)
	})

	t.Run("concurrent updates do not lose writes", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		e.IsOpenAccess = true
		require.NoError(t, s.AddEvent(ctx, &e))

		const writers = 10
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(player string) {
				defer wg.Done()
				for {
					_, err := s.UpdateEvent(ctx, e.ID, func(e *storage.Event) error {
						e.SetResponse(storage.Response{PlayerID: player, Status: storage.StatusDeclined})
						return nil
					})
					if !errors.Is(err, storage.ErrConflict) {
						errs <- err
						return
					}
				}
			}(string(rune('a' + i)))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		actual, err := s.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		require.Len(t, actual.PlayerResponses, writers)
		require.Len(t, actual.DeclinedPlayers, writers)
	})

	t.Run("list", func(t *testing.T) {
		s := create(t)
		e := NewEvent()
		for i := 0; i < 10; i++ {
			e.ID = ""
			require.NoError(t, s.AddEvent(ctx, &e))
			e.StartTime = e.StartTime.AddDate(0, 0, 1)
			e.EndTime = e.EndTime.AddDate(0, 0, 1)
		}

		list, err := s.ListEvents(ctx, initDate, initDate.AddDate(0, 0, 1))
		require.NoError(t, err)
		require.Len(t, list, 1)

		list, err = s.ListEvents(ctx, initDate, initDate.AddDate(0, 0, 7))
		require.NoError(t, err)
		require.Len(t, list, 7)
		for i := 1; i < len(list); i++ {
			require.True(t, list[i-1].StartTime.Before(list[i].StartTime))
		}

		all, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 10)
	})

	t.Run("list pending auto decline", func(t *testing.T) {
		s := create(t)
		now := initDate.Add(-24 * time.Hour)

		due := NewEvent()
		require.NoError(t, s.AddEvent(ctx, &due))

		exact := NewEvent()
		exactDeadline := now
		exact.VotingDeadline = &exactDeadline
		require.NoError(t, s.AddEvent(ctx, &exact))

		future := NewEvent()
		futureDeadline := now.Add(time.Minute)
		future.VotingDeadline = &futureDeadline
		require.NoError(t, s.AddEvent(ctx, &future))

		noDeadline := NewEvent()
		noDeadline.VotingDeadline = nil
		require.NoError(t, s.AddEvent(ctx, &noDeadline))

		processed := NewEvent()
		require.NoError(t, s.AddEvent(ctx, &processed))
		_, err := s.UpdateEvent(ctx, processed.ID, func(e *storage.Event) error {
			e.AutoDeclineProcessed = true
			return nil
		})
		require.NoError(t, err)

		list, err := s.ListPendingAutoDecline(ctx, now)
		require.NoError(t, err)
		ids := make([]string, 0, len(list))
		for _, e := range list {
			ids = append(ids, e.ID)
		}
		require.ElementsMatch(t, []string{due.ID, exact.ID}, ids)
	})
}

// CompareEvents compares events ignoring time zone representation and bookkeeping times.
func CompareEvents(t *testing.T, expected storage.Event, actual storage.Event) {
	t.Helper()
	require.True(t, expected.StartTime.Equal(actual.StartTime), "start time is not equals %q != %q", expected.StartTime, actual.StartTime)
	require.True(t, expected.EndTime.Equal(actual.EndTime), "end time is not equals %q != %q", expected.EndTime, actual.EndTime)
	if expected.VotingDeadline == nil {
		require.Nil(t, actual.VotingDeadline)
	} else {
		require.NotNil(t, actual.VotingDeadline)
		require.True(t, expected.VotingDeadline.Equal(*actual.VotingDeadline))
	}
	require.Equal(t, len(expected.PlayerResponses), len(actual.PlayerResponses))
	for i := range expected.PlayerResponses {
		require.True(t, expected.PlayerResponses[i].RespondedAt.Equal(actual.PlayerResponses[i].RespondedAt))
		expected.PlayerResponses[i].RespondedAt = actual.PlayerResponses[i].RespondedAt
	}
	expected.StartTime = actual.StartTime
	expected.EndTime = actual.EndTime
	expected.VotingDeadline = actual.VotingDeadline
	expected.CreatedAt = actual.CreatedAt
	expected.UpdatedAt = actual.UpdatedAt
	// nil and empty lists are the same record
	if len(expected.InvitedPlayers) == 0 && len(actual.InvitedPlayers) == 0 {
		expected.InvitedPlayers = actual.InvitedPlayers
	}
	if len(expected.DeclinedPlayers) == 0 && len(actual.DeclinedPlayers) == 0 {
		expected.DeclinedPlayers = actual.DeclinedPlayers
	}
	if len(expected.PlayerResponses) == 0 {
		expected.PlayerResponses = actual.PlayerResponses
	}
	if len(expected.FixesApplied) == 0 && len(actual.FixesApplied) == 0 {
		expected.FixesApplied = actual.FixesApplied
	}
	if len(expected.Notification.ReminderTimes) == 0 && len(actual.Notification.ReminderTimes) == 0 {
		expected.Notification.ReminderTimes = actual.Notification.ReminderTimes
	}
	require.Equal(t, expected, actual)
}
