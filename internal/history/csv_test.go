package history

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"savetrack/internal/core"
)

func mustEntry(t *testing.T, ts time.Time, goal, target, current int64) core.Entry {
	t.Helper()
	e, err := core.NewEntry("", ts, core.SavingsState{
		Goal:          core.Units(goal),
		MonthlyTarget: core.Units(target),
		Current:       core.Units(current),
	})
	require.NoError(t, err)
	return e
}

func TestWriteThenReadKeepsInputs(t *testing.T) {
	ts := time.Date(2025, 3, 14, 8, 15, 30, 123456000, time.UTC)
	entries := []core.Entry{
		mustEntry(t, ts, 6000, 3000, 1500),
		mustEntry(t, ts.AddDate(0, 1, 0), 6000, 3000, 4000),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, entries))
	assert.True(t, strings.HasPrefix(buf.String(), "timestamp,goal,monthly_target,current_saved,"))
	assert.Contains(t, buf.String(), "2025-03-14 08:15:30.123456,6000.00,3000.00,1500.00,4500.00,0.25,0.5")

	got, err := ReadEntries(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range entries {
		assert.True(t, entries[i].Timestamp.Equal(got[i].Timestamp))
		assert.Equal(t, entries[i].Goal, got[i].Goal)
		assert.Equal(t, entries[i].MonthlyTarget, got[i].MonthlyTarget)
		assert.Equal(t, entries[i].CurrentSaved, got[i].CurrentSaved)
		assert.Equal(t, entries[i].Remaining, got[i].Remaining)
	}
}

func TestReadEntriesToleratesSpreadsheetExports(t *testing.T) {
	in := ",timestamp,goal,monthly_target,current_saved,remaining,progress_fraction,happiness_fraction\n" +
		"0,2024-11-02 10:00:00.512000,6000,3000,2000,0,0,0\n" +
		"\n" +
		"1,2024-12-01,6000.0,,7000.0,,,\n"

	got, err := ReadEntries(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Derived columns are recomputed, not trusted.
	assert.Equal(t, core.Units(4000), got[0].Remaining)
	assert.InDelta(t, 1.0/3.0, got[0].ProgressFraction, 1e-6)
	assert.True(t, got[1].MonthlyTarget.IsZero())
	assert.Equal(t, 1.0, got[1].ProgressFraction)
}

func TestReadEntriesErrors(t *testing.T) {
	_, err := ReadEntries(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ReadEntries(strings.NewReader("timestamp,goal\n2024-01-01,10\n"))
	assert.ErrorContains(t, err, `missing column "current_saved"`)

	_, err = ReadEntries(strings.NewReader("timestamp,goal,current_saved\nyesterday,10,5\n"))
	assert.ErrorIs(t, err, core.ErrInvalidTimestamp)
	assert.ErrorContains(t, err, "row 2")

	_, err = ReadEntries(strings.NewReader("timestamp,goal,current_saved\n2024-01-01,0,5\n"))
	assert.ErrorIs(t, err, core.ErrInvalidGoal)

	_, err = ReadEntries(strings.NewReader("timestamp,goal,current_saved\n2024-01-01,10,-5\n"))
	assert.ErrorIs(t, err, core.ErrNegativeAmount)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, in := range []string{
		"2025-01-02T03:04:05Z",
		"2025-01-02T05:04:05+02:00",
		"2025-01-02 03:04:05",
		"2025-01-02 03:04:05.000001",
	} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.Equal(t, 2025, ts.Year(), in)
		assert.Equal(t, 3, ts.Hour(), in)
		assert.Equal(t, time.UTC, ts.Location(), in)
	}
}

func TestWriteXLSX(t *testing.T) {
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []core.Entry{mustEntry(t, ts, 6000, 3000, 3000)}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "3000", rows[1][3])
}
