package schedule

import (
	"testing"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	"github.com/stretchr/testify/require"
)

const team = "TV Herren 1"

var fixtures = []Fixture{
	{Date: "29.03.2025", Time: "18:00", TeamA: team, TeamB: "SV Nord", Location: "Sporthalle Süd"},
	{Date: "29.03.2025", Time: "20:00", TeamA: "TSV West", TeamB: team},
	{Date: "29.03.2025", Time: "19:00", TeamA: "SV Nord", TeamB: "TSV West"},
	{Date: "05.04.2025", Time: "18:00", TeamA: "TSV West", TeamB: team},
	{Date: "12.04.2025", Time: "18:00", TeamA: "SV Nord", TeamB: "TSV Ost"},
}

func TestGroupMatchDays(t *testing.T) {
	days := GroupMatchDays(fixtures, team)
	require.Len(t, days, 2)

	require.Equal(t, "29.03.2025", days[0].Date)
	require.Equal(t, "18:00", days[0].Time)
	require.Equal(t, "Sporthalle Süd", days[0].Location)
	require.Equal(t, "SV Nord, TSV West", days[0].Opponents)
	require.Len(t, days[0].Matches, 2)

	require.Equal(t, "05.04.2025", days[1].Date)
	require.Equal(t, "TSV West", days[1].Opponents)

	require.Empty(t, GroupMatchDays(fixtures, "unknown"))
}

func TestDrafts(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	opts := Options{
		TeamID:         "team-1",
		VotingLead:     48 * time.Hour,
		InvitedPlayers: []string{"p1", "p2"},
		Notification:   storage.NotificationSettings{Enabled: true, ReminderTimes: []storage.Reminder{{Hours: 24}}},
	}
	drafts, err := Derive(fixtures, team, opts, z)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	// same wall clock hour before and after the switch to summer time
	require.Equal(t, time.Date(2025, 3, 29, 17, 0, 0, 0, time.UTC), drafts[0].StartTime)
	require.Equal(t, time.Date(2025, 4, 5, 16, 0, 0, 0, time.UTC), drafts[1].StartTime)

	d := drafts[0]
	require.Equal(t, "Spiel gegen SV Nord, TSV West", d.Title)
	require.Equal(t, storage.TypeGame, d.Type)
	require.Equal(t, "Spiele: TV Herren 1 vs SV Nord, TSV West vs TV Herren 1", d.Description)
	require.Equal(t, "Sporthalle Süd", d.Location)
	require.Equal(t, DefaultDuration, d.EndTime.Sub(d.StartTime))
	require.Equal(t, d.StartTime.Add(-48*time.Hour), *d.VotingDeadline)
	require.Equal(t, []string{"p1", "p2"}, d.InvitedPlayers)
	require.Equal(t, "team-1", d.TeamID)

	require.Equal(t, DefaultLocation, drafts[1].Location)
}

func TestDraftsOpenAccessWithoutDeadline(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	drafts, err := Derive(fixtures, team, Options{
		IsOpenAccess:   true,
		InvitedPlayers: []string{"p1"},
		Duration:       90 * time.Minute,
	}, z)
	require.NoError(t, err)
	for _, d := range drafts {
		require.True(t, d.IsOpenAccess)
		require.Empty(t, d.InvitedPlayers)
		require.Nil(t, d.VotingDeadline)
		require.Equal(t, 90*time.Minute, d.EndTime.Sub(d.StartTime))
	}
}

func TestDraftsErrors(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	_, err := Derive(fixtures, "", Options{}, z)
	require.ErrorIs(t, err, ErrNoTeam)

	_, err = Derive([]Fixture{{Date: "31.02.2025", Time: "18:00", TeamA: team, TeamB: "x"}}, team, Options{}, z)
	require.ErrorIs(t, err, zone.ErrIncorrectCivil)
}
