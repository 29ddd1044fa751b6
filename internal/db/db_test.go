package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/stakes"
	"github.com/banshee-data/kappa/internal/sweep"
	"github.com/banshee-data/kappa/internal/timeutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := OpenDB(filepath.Join(t.TempDir(), "kappa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestOpenDBAppliesMigrations(t *testing.T) {
	database := openTestDB(t)

	version, dirty, err := database.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	for _, table := range []string{"sweep_runs", "sweep_points", "allocation_runs", "allocation_shares"} {
		var n int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}
}

func TestOpenDBTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	first, err := OpenDB(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := OpenDB(path)
	require.NoError(t, err)
	defer second.Close()

	version, _, err := second.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestPragmasApplied(t *testing.T) {
	database := openTestDB(t)

	var journalMode string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout, foreignKeys int
	require.NoError(t, database.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	require.NoError(t, database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 5000, busyTimeout)
	assert.Equal(t, 1, foreignKeys)
}

func TestMigrateDown(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, database.MigrateDown(Migrations()))
	version, dirty, err := database.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, database.MigrateUp(Migrations()))
	version, _, err = database.MigrateVersion(Migrations())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestMigrateUpCustomFS(t *testing.T) {
	database := openTestDB(t)

	migrationsFS := fstest.MapFS{
		"000001_create_runs.up.sql":   &fstest.MapFile{Data: []byte("SELECT 1;")},
		"000001_create_runs.down.sql": &fstest.MapFile{Data: []byte("SELECT 1;")},
		"000002_notes.up.sql":         &fstest.MapFile{Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY);")},
		"000002_notes.down.sql":       &fstest.MapFile{Data: []byte("DROP TABLE notes;")},
	}
	require.NoError(t, database.MigrateUp(migrationsFS))

	version, _, err := database.MigrateVersion(migrationsFS)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigrateClosedDB(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	database.Close()

	err = database.MigrateUp(Migrations())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create sqlite driver")
}

func TestRecordSweep(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	points, err := sweep.Evaluate(kappa.VariantV2, []float64{4, 16}, []float64{2, 11, 20})
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := database.RecordSweep(ctx, SweepRun{
		Variant:   kappa.VariantV2,
		TMedSpec:  "4,16",
		TSSpec:    "2,11,20",
		CreatedAt: created,
	}, points)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	runs, err := database.SweepRuns(ctx)
	require.NoError(t, err)
	expected := []SweepRun{{
		ID:           id,
		Variant:      kappa.VariantV2,
		TMedSpec:     "4,16",
		TSSpec:       "2,11,20",
		Points:       6,
		DomainErrors: 1,
		CreatedAt:    created,
	}}
	if diff := cmp.Diff(expected, runs); diff != "" {
		t.Errorf("SweepRuns mismatch (-want +got):\n%s", diff)
	}

	got, err := database.SweepPoints(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, len(points))
	for i := range points {
		assert.Equal(t, points[i].TMed, got[i].TMed)
		assert.Equal(t, points[i].TS, got[i].TS)
		assert.Equal(t, points[i].Kappa, got[i].Kappa)
		assert.Equal(t, points[i].OK(), got[i].OK())
	}

	// T_med=16, T_s=20 hits the zero denominator.
	failed := got[5]
	require.Error(t, failed.Err)
	assert.ErrorIs(t, failed.Err, kappa.ErrDomain)
	assert.Equal(t, points[5].Err.Error(), failed.Err.Error())
	assert.Zero(t, failed.Kappa)

	var nulls int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM sweep_points WHERE run_id = ? AND c_kappa IS NULL", id).Scan(&nulls))
	assert.Equal(t, 1, nulls)
}

func TestSweepRunsNewestFirst(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	older, err := database.RecordSweep(ctx, SweepRun{Variant: kappa.VariantV1, TMedSpec: "1", TSSpec: "1", CreatedAt: time.Unix(1000, 0)}, nil)
	require.NoError(t, err)
	newer, err := database.RecordSweep(ctx, SweepRun{Variant: kappa.VariantV1, TMedSpec: "2", TSSpec: "2", CreatedAt: time.Unix(2000, 0)}, nil)
	require.NoError(t, err)

	runs, err := database.SweepRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
	assert.Equal(t, older, runs[1].ID)
	assert.Zero(t, runs[0].Points)
}

func TestRunsStampedByClock(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	clock := timeutil.NewMockClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	database.SetClock(clock)

	first, err := database.RecordSweep(ctx, SweepRun{Variant: kappa.VariantV2, TMedSpec: "1", TSSpec: "1"}, nil)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	second, err := database.RecordSweep(ctx, SweepRun{Variant: kappa.VariantV2, TMedSpec: "1", TSSpec: "1"}, nil)
	require.NoError(t, err)

	runs, err := database.SweepRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, first, runs[1].ID)
	assert.True(t, runs[0].CreatedAt.Equal(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)), runs[0].CreatedAt)
}

func TestSweepPointsUnknownRun(t *testing.T) {
	database := openTestDB(t)

	_, err := database.SweepPoints(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = database.AllocationShares(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRecordAllocation(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	shares, err := stakes.Allocate(kappa.VariantV2, 4, 1000, []stakes.SubStake{
		{ID: "short", Term: 2, Amount: 100},
		{ID: "long", Term: 11, Amount: 100},
	})
	require.NoError(t, err)

	id, err := database.RecordAllocation(ctx, Allocation{
		Variant:        kappa.VariantV2,
		TMed:           4,
		Pool:           1000,
		WeightedMedian: true,
	}, shares)
	require.NoError(t, err)

	got, err := database.AllocationShares(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(shares, got); diff != "" {
		t.Errorf("AllocationShares mismatch (-want +got):\n%s", diff)
	}

	runs, err := database.AllocationRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, kappa.VariantV2, runs[0].Variant)
	assert.Equal(t, 2, runs[0].Stakes)
	assert.True(t, runs[0].WeightedMedian)
	assert.Equal(t, 1000.0, runs[0].Pool)
	assert.WithinDuration(t, time.Now(), runs[0].CreatedAt, time.Minute)
}

func TestRecordSweepCancelledContext(t *testing.T) {
	database := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := database.RecordSweep(ctx, SweepRun{Variant: kappa.VariantV1}, []sweep.Point{{TMed: 1, TS: 2, Kappa: 0.5}})
	require.Error(t, err)

	runs, err := database.SweepRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}
