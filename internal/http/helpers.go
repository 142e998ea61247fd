package http

import (
	"fmt"
	"math"
	"time"

	"savetrack/internal/core"
)

const displayTimeLayout = "2006-01-02 15:04"

// datetime-local input value
const inputTimeLayout = "2006-01-02T15:04:05"

// formView holds the tracker inputs as they are written into the form.
type formView struct {
	Goal          string
	MonthlyTarget string
	Current       string
	Previous      string
	Step          string
}

type evaluationView struct {
	Progress       core.Progress
	Meter          core.Meter
	Level          core.HappinessLevel
	Score          core.HappinessScore
	ScoreMax       core.HappinessScore
	HappinessWidth int
	Adjustment     core.Adjustment
	Compared       bool
	Goal           core.Money
	Current        core.Money
}

func newEvaluationView(snap core.Snapshot, scale core.HappinessScale) evaluationView {
	return evaluationView{
		Progress:       snap.Progress,
		Meter:          snap.Meter,
		Level:          snap.Level,
		Score:          snap.Score,
		ScoreMax:       scale.Max,
		HappinessWidth: int(math.Round(scale.Fraction(snap.Score) * 100)),
		Adjustment:     snap.Adjustment,
		Compared:       snap.Compared,
		Goal:           snap.State.Goal,
		Current:        snap.State.Current,
	}
}

type historyRow struct {
	ID             int64
	When           string
	TimestampInput string
	Goal           core.Money
	MonthlyTarget  core.Money
	Current        core.Money
	Remaining      core.Money
	Progress       string
	Happiness      string
}

type trendView struct {
	Label      string
	Saved      core.Money
	Adjustment core.Adjustment
	Score      core.HappinessScore
}

type historyView struct {
	Rows  []historyRow
	Trend []trendView
	Score core.HappinessScore
	Level core.HappinessLevel
	Chart chartView
}

func newHistoryView(entries []core.Entry, trend core.HappinessTrend, scale core.HappinessScale) historyView {
	v := historyView{
		Score: trend.Score,
		Level: scale.Level(trend.Score),
		Chart: buildChart(entries),
	}
	for _, e := range entries {
		v.Rows = append(v.Rows, historyRow{
			ID:             e.ID,
			When:           e.Timestamp.UTC().Format(displayTimeLayout),
			TimestampInput: e.Timestamp.UTC().Format(inputTimeLayout),
			Goal:           e.Goal,
			MonthlyTarget:  e.MonthlyTarget,
			Current:        e.CurrentSaved,
			Remaining:      e.Remaining,
			Progress:       percent(e.ProgressFraction),
			Happiness:      percent(e.HappinessFraction),
		})
	}
	for _, st := range trend.Steps {
		v.Trend = append(v.Trend, trendView{
			Label:      time.Date(st.Year, st.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006"),
			Saved:      st.Saved,
			Adjustment: st.Adjustment,
			Score:      st.Score,
		})
	}
	return v
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
