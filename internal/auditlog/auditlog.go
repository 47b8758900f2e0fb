// Package auditlog records every mutating command against the books in
// logs/audit-log.csv.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one audited command.
type Entry struct {
	Timestamp time.Time
	User      string
	Command   string
	Action    string
	Details   string
	Ref       string // batch id, document number or account code
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,user,command,action,details,ref"

const (
	numFields  = 6
	logDir     = "logs"
	logFile    = "audit-log.csv"
	colTime    = 0
	colUser    = 1
	colCommand = 2
	colAction  = 3
	colDetails = 4
	colRef     = 5
)

// Path returns the audit log location under root.
func Path(root string) string {
	return filepath.Join(root, logDir, logFile)
}

func marshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTime] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colUser] = e.User
	row[colCommand] = e.Command
	row[colAction] = e.Action
	row[colDetails] = e.Details
	row[colRef] = e.Ref
	return row
}

func unmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTime])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTime], err)
	}
	return Entry{
		Timestamp: ts,
		User:      record[colUser],
		Command:   record[colCommand],
		Action:    record[colAction],
		Details:   record[colDetails],
		Ref:       record[colRef],
	}, nil
}

// Log appends entries for one books directory.
type Log struct {
	root string
	user string
	now  func() time.Time
}

// New returns a Log writing under root. The user defaults to $USER.
func New(root string) *Log {
	user := os.Getenv("USER")
	if user == "" {
		user = "unknown"
	}
	return &Log{root: root, user: user, now: time.Now}
}

// Record appends a single entry stamped with the current time.
func (l *Log) Record(command, action, details, ref string) error {
	return Append(l.root, []Entry{{
		Timestamp: l.now(),
		User:      l.user,
		Command:   command,
		Action:    action,
		Details:   details,
		Ref:       ref,
	}})
}

// Append writes entries to <root>/logs/audit-log.csv, creating the file and
// header if needed.
func Append(root string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Join(root, logDir), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := Path(root)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(marshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries, or nil when nothing has been logged yet.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(Path(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()
	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(records)-1)
	for i, rec := range records[1:] {
		e, err := unmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
