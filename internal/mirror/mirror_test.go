package mirror

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Mirror {
	t.Helper()
	m, err := Open(filepath.Join(t.TempDir(), "cache", "mirror.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSnapshotRoundTrip(t *testing.T) {
	m := openTemp(t)
	ctx := context.Background()

	_, ok, err := m.LoadSnapshot(ctx, "budgets")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SaveSnapshot(ctx, "budgets", []byte(`[{"id":"1"},{"id":"2"}]`)))
	require.NoError(t, m.SaveSnapshot(ctx, "budgets", []byte(`[{"id":"3"}]`)))

	data, ok, err := m.LoadSnapshot(ctx, "budgets")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"3"}]`, string(data))

	snaps, err := m.Snapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1, snaps[0].Items)
	assert.False(t, snaps[0].UpdatedAt.IsZero())
}

func TestSaveSnapshot_RejectsNonArray(t *testing.T) {
	m := openTemp(t)
	assert.Error(t, m.SaveSnapshot(context.Background(), "x", []byte(`{"id":1}`)))
}

func TestClear(t *testing.T) {
	m := openTemp(t)
	ctx := context.Background()
	require.NoError(t, m.SaveSnapshot(ctx, "accounts", []byte(`[]`)))
	require.NoError(t, m.Clear(ctx))

	snaps, err := m.Snapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	ctx := context.Background()

	m, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, m.SaveSnapshot(ctx, "transactions", []byte(`[{"id":"1"}]`)))
	require.NoError(t, m.Close())

	m, err = Open(path)
	require.NoError(t, err)
	defer m.Close()
	_, ok, err := m.LoadSnapshot(ctx, "transactions")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncRuns(t *testing.T) {
	m := openTemp(t)
	ctx := context.Background()

	_, ok, err := m.LastSync(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, m.RecordSync(ctx, SyncRun{StartedAt: start, FinishedAt: start.Add(time.Second), OK: true}))
	require.NoError(t, m.RecordSync(ctx, SyncRun{StartedAt: start.Add(time.Minute), FinishedAt: start.Add(time.Minute), Message: "offline"}))

	run, ok, err := m.LastSync(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, run.OK)
	assert.Equal(t, "offline", run.Message)
	assert.True(t, run.StartedAt.Equal(start.Add(time.Minute)))
}

func TestConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	ctx := context.Background()

	// Two handles stand in for two spendwise processes sharing a home.
	first, err := Open(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	collections := []string{"transactions", "categories", "accounts", "budgets"}
	var g errgroup.Group
	for round := 0; round < 10; round++ {
		round := round
		for i, c := range collections {
			c := c
			m := first
			if i%2 == 1 {
				m = second
			}
			g.Go(func() error {
				return m.SaveSnapshot(ctx, c, []byte(fmt.Sprintf(`[{"id":"%d"}]`, round)))
			})
		}
		g.Go(func() error { return second.Clear(ctx) })
	}
	require.NoError(t, g.Wait())

	for _, c := range collections {
		require.NoError(t, first.SaveSnapshot(ctx, c, []byte(`[{"id":"x"}]`)))
	}
	snaps, err := second.Snapshots(ctx)
	require.NoError(t, err)
	assert.Len(t, snaps, 4)
}
