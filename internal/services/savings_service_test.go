package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savetrack/internal/core"
	"savetrack/internal/history"
	"savetrack/internal/memory"
	"savetrack/internal/ports"
)

type recordingPublisher struct {
	mu   sync.Mutex
	ids  []int64
	fail bool
}

func (p *recordingPublisher) PublishEntrySync(_ context.Context, _ string, id, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.ids = append(p.ids, id)
	return nil
}

func (p *recordingPublisher) published() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.ids...)
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func state(goal, target, current int64) core.SavingsState {
	return core.SavingsState{
		Goal:          core.Units(goal),
		MonthlyTarget: core.Units(target),
		Current:       core.Units(current),
	}
}

func TestSaveEntryStoresAndPublishes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{}
	svc := NewSavingsService(memory.New(), pub, fixedClock(now))

	e, err := svc.SaveEntry(ctx, "s1", state(6000, 3000, 3000))
	require.NoError(t, err)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, 0.5, e.ProgressFraction)
	assert.Equal(t, 1.0, e.HappinessFraction)
	assert.Equal(t, []int64{e.ID}, pub.published())

	hist, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestSaveEntryRejectsInvalidInput(t *testing.T) {
	svc := NewSavingsService(memory.New(), nil)

	_, err := svc.SaveEntry(context.Background(), "s1", state(0, 0, 10))
	assert.ErrorIs(t, err, core.ErrInvalidGoal)
	assert.True(t, core.IsValidationError(err))

	_, err = svc.SaveEntry(context.Background(), "", state(10, 0, 10))
	assert.ErrorIs(t, err, core.ErrEmptySession)
}

func TestSaveEntrySurvivesPublishFailure(t *testing.T) {
	svc := NewSavingsService(memory.New(), &recordingPublisher{fail: true})
	_, err := svc.SaveEntry(context.Background(), "s1", state(100, 0, 10))
	assert.NoError(t, err)
}

func TestEvaluateUsesPreviousMonthFromHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	feb := time.Date(2025, 2, 20, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	_, err := NewSavingsService(store, nil, fixedClock(feb)).SaveEntry(ctx, "s1", state(6000, 3000, 2000))
	require.NoError(t, err)

	svc := NewSavingsService(store, nil, fixedClock(mar))

	snap, err := svc.Evaluate(ctx, "s1", state(6000, 3000, 2500))
	require.NoError(t, err)
	assert.True(t, snap.Compared)
	assert.Equal(t, core.AdjustUp, snap.Adjustment)
	assert.Equal(t, core.HappinessScore(6), snap.Score)

	snap, err = svc.Evaluate(ctx, "s1", state(6000, 3000, 1500))
	require.NoError(t, err)
	assert.Equal(t, core.AdjustDown, snap.Adjustment)
	assert.Equal(t, core.HappinessScore(4), snap.Score)

	// Entries from the current month are not a comparison base.
	snap, err = NewSavingsService(store, nil, fixedClock(feb)).Evaluate(ctx, "s1", state(6000, 3000, 2500))
	require.NoError(t, err)
	assert.False(t, snap.Compared)
	assert.Equal(t, core.HappinessScore(5), snap.Score)
}

func TestEvaluateExplicitPreviousMonthWins(t *testing.T) {
	svc := NewSavingsService(memory.New(), nil)
	prev := core.Units(2500)
	st := state(6000, 3000, 2000)
	st.PreviousMonthCurrent = &prev

	snap, err := svc.Evaluate(context.Background(), "", st)
	require.NoError(t, err)
	assert.Equal(t, core.AdjustDown, snap.Adjustment)
	assert.InDelta(t, 1.0/3.0, snap.Progress.Fraction, 1e-6)
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewSavingsService(memory.New(), pub)

	e, err := svc.SaveEntry(ctx, "s1", state(6000, 3000, 1000))
	require.NoError(t, err)

	ts := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.UpdateEntry(ctx, "s1", e.ID, state(6000, 3000, 7000), ts)
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.ProgressFraction)
	assert.Equal(t, ts, updated.Timestamp)
	assert.Equal(t, int64(2), updated.Version)
	assert.Len(t, pub.published(), 2)

	_, err = svc.UpdateEntry(ctx, "s1", e.ID, state(6000, 3000, 7000), time.Time{})
	assert.ErrorIs(t, err, core.ErrInvalidTimestamp)

	_, err = svc.UpdateEntry(ctx, "s2", e.ID, state(6000, 3000, 7000), ts)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	require.NoError(t, svc.DeleteEntry(ctx, "s1", e.ID))
	assert.ErrorIs(t, svc.DeleteEntry(ctx, "s1", e.ID), ports.ErrNotFound)
}

func TestMergeHistory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{}
	svc := NewSavingsService(memory.New(), pub, fixedClock(now))

	saved, err := svc.SaveEntry(ctx, "s1", state(6000, 3000, 1000))
	require.NoError(t, err)

	dup, err := core.NewEntry("", now, state(9000, 3000, 1000))
	require.NoError(t, err)
	older, err := core.NewEntry("", now.AddDate(0, -1, 0), state(6000, 3000, 500))
	require.NoError(t, err)

	res, err := svc.MergeHistory(ctx, "s1", []core.Entry{dup, older})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Existing)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, 2, res.Kept)

	hist, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, core.Units(500), hist[0].CurrentSaved)
	assert.Equal(t, core.Units(9000), hist[1].Goal, "uploaded duplicate wins")
	assert.Equal(t, saved.ID, hist[1].ID, "changed row keeps its ID")
	assert.Equal(t, int64(2), hist[1].Version)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Updated)

	// The original save, the changed row and the older uploaded row.
	assert.Len(t, pub.published(), 3)
}

func TestMergeHistoryOwnExportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 123456789, time.UTC)
	pub := &recordingPublisher{}
	svc := NewSavingsService(memory.New(), pub, fixedClock(now))

	saved, err := svc.SaveEntry(ctx, "s1", state(6000, 3000, 1000))
	require.NoError(t, err)
	assert.Equal(t, now.Truncate(time.Microsecond), saved.Timestamp)

	hist, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, history.WriteEntries(&buf, hist))
	uploaded, err := history.ReadEntries(&buf)
	require.NoError(t, err)

	res, err := svc.MergeHistory(ctx, "s1", uploaded)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Kept)
	assert.Zero(t, res.Added)
	assert.Zero(t, res.Updated)

	hist, err = svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, saved.ID, hist[0].ID)
	assert.Equal(t, []int64{saved.ID}, pub.published(), "nothing republished")
}

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewSavingsService(memory.New(), nil)

	d, err := svc.Defaults(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.Units(6000), d.Goal)
	assert.Equal(t, core.Units(3000), d.MonthlyTarget)
	assert.True(t, d.Current.IsZero())
	assert.Equal(t, core.Units(500), svc.InputStep())
	assert.Equal(t, "ZAR", svc.Currency())

	_, err = svc.SaveEntry(ctx, "s1", state(8000, 1000, 200))
	require.NoError(t, err)
	d, err = svc.Defaults(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.Units(8000), d.Goal)
	assert.Equal(t, core.Units(1000), d.MonthlyTarget)
	assert.Equal(t, core.Units(200), d.Current)
}

func TestDefaultsCarryBalanceIntoNewMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	feb, err := core.NewEntry("s1", time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC), state(6000, 3000, 2500))
	require.NoError(t, err)
	_, err = store.Append(ctx, feb)
	require.NoError(t, err)

	svc := NewSavingsService(store, nil, fixedClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)))
	d, err := svc.Defaults(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, core.Units(2500), d.Current)
	assert.Equal(t, core.Units(6000), d.Goal)

	snap, err := svc.Evaluate(ctx, "s1", d)
	require.NoError(t, err)
	assert.NotEqual(t, core.AdjustDown, snap.Adjustment)
}

func TestTrend(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for i, saved := range []int64{1000, 2000, 1500} {
		ts := time.Date(2025, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC)
		_, err := NewSavingsService(store, nil, fixedClock(ts)).SaveEntry(ctx, "s1", state(6000, 3000, saved))
		require.NoError(t, err)
	}

	trend, err := NewSavingsService(store, nil).Trend(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, trend.Steps, 3)
	assert.Equal(t, core.HappinessScore(5), trend.Score)
	assert.Equal(t, core.AdjustUp, trend.Steps[1].Adjustment)
	assert.Equal(t, core.AdjustDown, trend.Steps[2].Adjustment)
}
