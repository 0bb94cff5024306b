package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/moklem/tv-herren-bereich/internal/app"
	memorystorage "github.com/moklem/tv-herren-bereich/internal/storage/memory"
	"github.com/moklem/tv-herren-bereich/internal/zone"
	"github.com/stretchr/testify/require"
)

func TestNewCron(t *testing.T) {
	z := zone.MustNew(zone.DefaultName)
	events := app.New(memorystorage.New(), z, app.Config{})

	c, err := newCron(context.Background(), events, z, "@every 5m")
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
	require.Equal(t, z.Location(), c.Location())

	_, err = newCron(context.Background(), events, z, "every now and then")
	require.Error(t, err)
}

func TestRunFailsOnStartupErrors(t *testing.T) {
	old := configFile
	t.Cleanup(func() { configFile = old })

	tests := []struct {
		name   string
		config string
	}{
		{"missing file", ""},
		{"unset env", "storage:\n  storageType: sql\n  database:\n    host: $env:TEST_SCHEDULER_UNSET_DB_HOST\n"},
		{"unknown zone", "zone: Mars/Olympus\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			configFile = filepath.Join(t.TempDir(), "scheduler.yaml")
			if tc.config != "" {
				require.NoError(t, os.WriteFile(configFile, []byte(tc.config), 0o600))
			}
			require.Equal(t, 1, run())
		})
	}
}
