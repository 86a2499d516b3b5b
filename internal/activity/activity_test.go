package activity

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendwise-dev/spendwise/internal/store"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	l := New(filepath.Join(t.TempDir(), "state"), logger)
	l.now = func() time.Time { return testTime }
	return l
}

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Entity:    "transactions",
		Action:    "create",
		RecordID:  "42",
		Details:   `{"description":"Lunch, with team"}`,
	}
}

func TestAppend_CreatesFileAndDir(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append([]Entry{testEntry()}))

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), Header+"\n")

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.True(t, testTime.Equal(got.Timestamp))
	assert.Equal(t, "transactions", got.Entity)
	assert.Equal(t, `{"description":"Lunch, with team"}`, got.Details)
}

func TestAppend_ExistingFileKeepsSingleHeader(t *testing.T) {
	l := newTestLog(t)
	require.NoError(t, l.Append([]Entry{testEntry()}))
	e2 := testEntry()
	e2.Action = "delete"
	require.NoError(t, l.Append([]Entry{e2}))

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "delete", entries[1].Action)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := newTestLog(t).Read()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.ErrorContains(t, err, "expected 5 fields")
}

func TestMarshalEntry_UTC(t *testing.T) {
	e := testEntry()
	e.Timestamp = time.Date(2025, 1, 15, 12, 30, 0, 0, time.FixedZone("CET", 2*3600))
	assert.Equal(t, "2025-01-15T10:30:00Z", MarshalEntry(e)[colTimestamp])
}

func TestObserve(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	l.Observe(ctx, store.Event{Collection: "budgets", Action: store.ActionCreate, ID: "7", Record: map[string]string{"name": "Food"}})
	l.Observe(ctx, store.Event{Collection: "budgets", Action: store.ActionDelete, ID: "7"})

	entries, err := l.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "7", entries[0].RecordID)
	assert.JSONEq(t, `{"name":"Food"}`, entries[0].Details)
	assert.Equal(t, "delete", entries[1].Action)
	assert.Empty(t, entries[1].Details)
}

func TestTail(t *testing.T) {
	l := newTestLog(t)
	for _, id := range []string{"1", "2", "3"} {
		e := testEntry()
		e.RecordID = id
		require.NoError(t, l.Append([]Entry{e}))
	}
	tail, err := l.Tail(2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "2", tail[0].RecordID)
}
