// Package history reads, writes and merges saved savings entries.
//
// The CSV layout matches the columns the tracker has always exported so a
// history downloaded from one session can be uploaded into another.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"savetrack/internal/core"
)

// Header lists the CSV columns in export order.
var Header = []string{
	"timestamp",
	"goal",
	"monthly_target",
	"current_saved",
	"remaining",
	"progress_fraction",
	"happiness_fraction",
}

// TimestampLayout is the layout written to CSV files.
const TimestampLayout = "2006-01-02 15:04:05.000000"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var required = []string{"timestamp", "goal", "current_saved"}

// ErrEmptyFile is returned when an upload has no header row.
var ErrEmptyFile = errors.New("empty history file")

// ParseTimestamp accepts RFC3339 and the space separated layouts spreadsheet
// tools produce. Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidTimestamp, s)
}

// ReadEntries parses a history CSV. Columns are matched by header name, so
// extra columns and a different order are tolerated. Derived columns are
// ignored and recomputed from goal, monthly_target and current_saved.
func ReadEntries(r io.Reader) ([]core.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading history header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var entries []core.Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if blank(rec) {
			continue
		}
		e, err := unmarshalEntry(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries with a header row.
func WriteEntries(w io.Writer, entries []core.Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalEntry converts an entry to a CSV row in Header order.
func MarshalEntry(e core.Entry) []string {
	return []string{
		e.Timestamp.UTC().Format(TimestampLayout),
		e.Goal.String(),
		e.MonthlyTarget.String(),
		e.CurrentSaved.String(),
		e.Remaining.String(),
		formatFraction(e.ProgressFraction),
		formatFraction(e.HappinessFraction),
	}
}

func unmarshalEntry(rec []string, cols map[string]int) (core.Entry, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	ts, err := ParseTimestamp(field("timestamp"))
	if err != nil {
		return core.Entry{}, err
	}
	goal, err := core.ParseAmount(field("goal"))
	if err != nil {
		return core.Entry{}, fmt.Errorf("goal: %w", err)
	}
	current, err := core.ParseAmount(field("current_saved"))
	if err != nil {
		return core.Entry{}, fmt.Errorf("current_saved: %w", err)
	}
	var target core.Money
	if v := field("monthly_target"); v != "" {
		if target, err = core.ParseAmount(v); err != nil {
			return core.Entry{}, fmt.Errorf("monthly_target: %w", err)
		}
	}

	e := core.Entry{
		Timestamp:     ts,
		Goal:          goal,
		MonthlyTarget: target,
		CurrentSaved:  current,
	}
	if err := e.Recompute(); err != nil {
		return core.Entry{}, err
	}
	return e, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func formatFraction(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
