// Package activity keeps a CSV audit trail of confirmed changes.
package activity

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spendwise-dev/spendwise/internal/store"
)

// Entry is one row in the activity log.
type Entry struct {
	Timestamp time.Time
	Entity    string
	Action    string
	RecordID  string
	Details   string
}

// Header is the CSV header for activity.csv.
const Header = "timestamp,entity,action,record_id,details"

// FileName is the log's name inside its directory.
const FileName = "activity.csv"

const (
	numFields    = 5
	colTimestamp = 0
	colEntity    = 1
	colAction    = 2
	colRecordID  = 3
	colDetails   = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colEntity] = e.Entity
	row[colAction] = e.Action
	row[colRecordID] = e.RecordID
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp: ts,
		Entity:    record[colEntity],
		Action:    record[colAction],
		RecordID:  record[colRecordID],
		Details:   record[colDetails],
	}, nil
}

// Log appends entries to <dir>/activity.csv. It is safe for concurrent use.
type Log struct {
	dir string
	now func() time.Time
	log *logrus.Entry

	mu sync.Mutex
}

// New returns a Log writing under dir.
func New(dir string, logger *logrus.Logger) *Log {
	return &Log{dir: dir, now: time.Now, log: logger.WithField("component", "activity")}
}

// Path returns the CSV file location.
func (l *Log) Path() string { return filepath.Join(l.dir, FileName) }

// Append writes entries, creating the file and header if needed.
func (l *Log) Append(entries []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating activity dir: %w", err)
	}

	path := l.Path()
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Observe records a confirmed store mutation. Failures are logged, never
// returned, so auditing can't undo a write the backend already accepted.
func (l *Log) Observe(_ context.Context, ev store.Event) {
	e := Entry{
		Timestamp: l.now(),
		Entity:    ev.Collection,
		Action:    string(ev.Action),
		RecordID:  ev.ID,
	}
	if ev.Action != store.ActionDelete && ev.Record != nil {
		if data, err := json.Marshal(ev.Record); err == nil {
			e.Details = string(data)
		}
	}
	if err := l.Append([]Entry{e}); err != nil {
		l.log.WithError(err).Warn("writing activity entry")
	}
}

// Read returns all entries, or nil if nothing has been logged.
func (l *Log) Read() ([]Entry, error) {
	f, err := os.Open(l.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// Tail returns the last n entries.
func (l *Log) Tail(n int) ([]Entry, error) {
	entries, err := l.Read()
	if err != nil || len(entries) <= n {
		return entries, err
	}
	return entries[len(entries)-n:], nil
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
