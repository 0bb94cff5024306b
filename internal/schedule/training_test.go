package schedule

import (
	"testing"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	"github.com/stretchr/testify/require"
)

func TestTrainings(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	drafts, err := Trainings(TrainingSeries{
		Location: "Sporthalle Süd",
		First:    "25.03.2025",
		Time:     "19:00",
		Until:    "03.04.2025",
		Rule:     "FREQ=WEEKLY;BYDAY=TU,TH",
		Except:   []string{"27.03.2025"},
	}, Options{InvitedPlayers: []string{"p1"}, VotingLead: 24 * time.Hour, Duration: 90 * time.Minute}, z)
	require.NoError(t, err)

	starts := make([]time.Time, 0, len(drafts))
	for _, d := range drafts {
		starts = append(starts, d.StartTime)
		require.Equal(t, DefaultTrainingTitle, d.Title)
		require.Equal(t, storage.TypeTraining, d.Type)
		require.Equal(t, []string{"p1"}, d.InvitedPlayers)
		require.Equal(t, 90*time.Minute, d.EndTime.Sub(d.StartTime))
		require.Equal(t, d.StartTime.Add(-24*time.Hour), *d.VotingDeadline)
	}
	// 19:00 in Berlin before and after the switch to summer time on 30.03.
	require.Equal(t, []time.Time{
		time.Date(2025, 3, 25, 18, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 17, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 3, 17, 0, 0, 0, time.UTC),
	}, starts)
}

func TestTrainingsCount(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	drafts, err := Trainings(TrainingSeries{
		Title: "Athletik",
		First: "06.01.2025",
		Time:  "18:30",
		Rule:  "FREQ=WEEKLY;COUNT=3",
	}, Options{IsOpenAccess: true, InvitedPlayers: []string{"p1"}}, z)
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	for _, d := range drafts {
		require.Equal(t, "Athletik", d.Title)
		require.Empty(t, d.InvitedPlayers)
		require.Nil(t, d.VotingDeadline)
	}
}

func TestTrainingsErrors(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	tests := []struct {
		name   string
		series TrainingSeries
		err    error
	}{
		{"no end", TrainingSeries{First: "06.01.2025", Time: "18:30", Rule: "FREQ=WEEKLY"}, ErrIncorrectRule},
		{"bad rule", TrainingSeries{First: "06.01.2025", Time: "18:30", Rule: "FREQ=SOMETIMES;COUNT=2"}, ErrIncorrectRule},
		{"too many", TrainingSeries{First: "06.01.2025", Time: "18:30", Rule: "FREQ=DAILY;COUNT=500"}, ErrIncorrectRule},
		{"huge count", TrainingSeries{First: "06.01.2025", Time: "18:30", Rule: "FREQ=MINUTELY;COUNT=3000000"}, ErrIncorrectRule},
		{"far until", TrainingSeries{First: "06.01.2025", Time: "18:30", Until: "31.12.2099", Rule: "FREQ=MINUTELY"}, ErrIncorrectRule},
		{"bad date", TrainingSeries{First: "32.01.2025", Time: "18:30", Rule: "FREQ=DAILY;COUNT=1"}, zone.ErrIncorrectCivil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			_, err := Trainings(tc.series, Options{}, z)
			require.ErrorIs(t, err, tc.err)
			require.True(t, time.Since(start) < time.Second, "rejected after %s", time.Since(start))
		})
	}
}

func TestTrainingsLimit(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	drafts, err := Trainings(TrainingSeries{
		First: "06.01.2025",
		Time:  "18:30",
		Rule:  "FREQ=DAILY;COUNT=200",
	}, Options{}, z)
	require.NoError(t, err)
	require.Len(t, drafts, MaxTrainings)
}
