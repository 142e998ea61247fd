package http

import (
	"strconv"
	"strings"

	"savetrack/internal/core"
)

// Chart geometry in SVG user units.
const (
	chartWidth   = 600
	chartHeight  = 220
	chartPadding = 24
)

type chartPoint struct {
	X, Y  float64
	Title string
}

// chartView is a line chart of current_saved over time.
type chartView struct {
	Width, Height int
	Points        string
	Dots          []chartPoint
	GoalY         float64
	HasGoal       bool
	Max           core.Money
	From, To      string
}

// buildChart scales entries onto the chart area: time on x, amount on y.
// The latest goal is drawn as a reference line when it fits the scale.
func buildChart(entries []core.Entry) chartView {
	v := chartView{Width: chartWidth, Height: chartHeight}
	if len(entries) == 0 {
		return v
	}

	first, last := entries[0].Timestamp, entries[len(entries)-1].Timestamp
	goal := entries[len(entries)-1].Goal
	maxCents := goal.Cents
	for _, e := range entries {
		maxCents = max(maxCents, e.CurrentSaved.Cents)
	}
	if maxCents <= 0 {
		maxCents = 1
	}
	v.Max = core.Money{Cents: maxCents}
	v.From = first.UTC().Format(displayTimeLayout)
	v.To = last.UTC().Format(displayTimeLayout)

	plotW := float64(chartWidth - 2*chartPadding)
	plotH := float64(chartHeight - 2*chartPadding)
	span := last.Sub(first).Seconds()

	y := func(cents int64) float64 {
		return chartPadding + plotH - plotH*float64(cents)/float64(maxCents)
	}

	var b strings.Builder
	for i, e := range entries {
		x := chartPadding + plotW/2
		if span > 0 {
			x = chartPadding + plotW*e.Timestamp.Sub(first).Seconds()/span
		}
		p := chartPoint{X: round1(x), Y: round1(y(e.CurrentSaved.Cents)), Title: e.Timestamp.UTC().Format(displayTimeLayout)}
		v.Dots = append(v.Dots, p)
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(p.X, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', 1, 64))
	}
	v.Points = b.String()

	if goal.Cents > 0 {
		v.HasGoal = true
		v.GoalY = round1(y(goal.Cents))
	}
	return v
}

func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
