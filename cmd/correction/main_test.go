package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/moklem/tv-herren-bereich/internal/correction"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	sqlstorage "github.com/moklem/tv-herren-bereich/internal/storage/sql"
	"github.com/moklem/tv-herren-bereich/internal/storage/storagetest"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func setFlags(t *testing.T, newTag string, newDryRun bool, newReport string, newList bool) {
	t.Helper()
	oldTag, oldDryRun, oldReport, oldList := tag, dryRun, reportFile, listTags
	tag, dryRun, reportFile, listTags = newTag, newDryRun, newReport, newList
	t.Cleanup(func() {
		tag, dryRun, reportFile, listTags = oldTag, oldDryRun, oldReport, oldList
	})
}

func TestRunList(t *testing.T) {
	setFlags(t, "", false, "", true)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(&stdout, &stderr))
	require.Contains(t, stdout.String(), correction.TagTimezoneDSTFix)
	require.Contains(t, stdout.String(), correction.TagAutoDeclineReset)
}

func TestRunConfigurationMissing(t *testing.T) {
	setFlags(t, correction.TagTimezoneDSTFix, false, "", false)
	t.Setenv("EVENTS_STORAGE_TYPE", "")
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(&stdout, &stderr))
	require.Contains(t, stderr.String(), "EVENTS_STORAGE_TYPE")
}

func TestRunUnknownTag(t *testing.T) {
	setFlags(t, "no-such-fix", false, "", false)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(&stdout, &stderr))
}

func TestRunUnreachableStore(t *testing.T) {
	setFlags(t, correction.TagTimezoneDSTFix, false, "", false)
	t.Setenv("EVENTS_STORAGE_TYPE", "sql")
	t.Setenv("EVENTS_DB_DRIVER", "sqlite3")
	t.Setenv("EVENTS_DB_NAME", filepath.Join(t.TempDir(), "missing", "events.db"))
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(&stdout, &stderr))
}

func TestRunRefusesMemoryStorage(t *testing.T) {
	setFlags(t, correction.TagTimezoneDSTFix, false, "", false)
	t.Setenv("EVENTS_STORAGE_TYPE", storagebuilder.TypeMemory)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(&stdout, &stderr))
	require.Contains(t, stderr.String(), "not persistent")
	require.Empty(t, stdout.String())
}

// seedSQLite points the CLI at a new sqlite file holding one event.
func seedSQLite(t *testing.T) storage.Event {
	t.Helper()
	file := filepath.Join(t.TempDir(), "events.db")
	t.Setenv("EVENTS_STORAGE_TYPE", storagebuilder.TypeSQL)
	t.Setenv("EVENTS_DB_DRIVER", sqlstorage.DriverSQLite)
	t.Setenv("EVENTS_DB_NAME", file)

	s, err := storagebuilder.New(storagebuilder.Config{
		StorageType: storagebuilder.TypeSQL,
		Database:    sqlstorage.Config{Driver: sqlstorage.DriverSQLite, Database: file},
	})
	require.NoError(t, err)
	e := storagetest.NewEvent()
	require.NoError(t, s.AddEvent(context.Background(), &e))
	require.NoError(t, s.Close(context.Background()))
	return e
}

func TestRunWritesReport(t *testing.T) {
	e := seedSQLite(t)
	file := filepath.Join(t.TempDir(), "report.yaml")
	setFlags(t, correction.TagTimezoneDSTFix, true, file, false)
	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run(&stdout, &stderr), stderr.String())
	require.Contains(t, stdout.String(), "scanned: 1\nfixed: 1\nerrors: 0\n")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var r correction.Report
	require.NoError(t, yaml.Unmarshal(data, &r))
	require.Equal(t, correction.TagTimezoneDSTFix, r.Tag)
	require.True(t, r.DryRun)
	require.Equal(t, []string{e.ID}, r.FixedIDs)
}

func TestRunAppliesOnce(t *testing.T) {
	seedSQLite(t)
	setFlags(t, correction.TagTimezoneDSTFix, false, "", false)

	for _, fixed := range []int{1, 0} {
		var stdout, stderr bytes.Buffer
		require.Equal(t, 0, run(&stdout, &stderr), stderr.String())
		require.Contains(t, stdout.String(), fmt.Sprintf("scanned: 1\nfixed: %d\nerrors: 0\n", fixed))
	}
}

func TestProgressBar(t *testing.T) {
	var out bytes.Buffer
	pb := newProgressBar(&out)
	pb.update(1, 4)
	require.Contains(t, out.String(), "25% (1/4)")
	pb.update(4, 4)
	require.Contains(t, out.String(), "[**************************************************]100% (4/4)\n")
}
