package core

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// HappinessScore is the bounded month-over-month savings mood.
type HappinessScore int

// Adjustment is the change one monthly comparison applies to a score.
type Adjustment int

const (
	AdjustDown Adjustment = -1
	AdjustNone Adjustment = 0
	AdjustUp   Adjustment = 1
)

// HappinessLevel is the qualitative reading of a score.
type HappinessLevel string

const (
	LevelMiserable HappinessLevel = "miserable"
	LevelUnhappy   HappinessLevel = "unhappy"
	LevelNeutral   HappinessLevel = "neutral"
	LevelHappy     HappinessLevel = "happy"
	LevelEcstatic  HappinessLevel = "ecstatic"
)

// HappinessScale holds the bounds of the score and where a new history starts.
type HappinessScale struct {
	Min   HappinessScore
	Max   HappinessScore
	Start HappinessScore
}

// DefaultHappinessScale is 0..10 starting at 5.
func DefaultHappinessScale() HappinessScale {
	return HappinessScale{Min: 0, Max: 10, Start: 5}
}

func (sc HappinessScale) Validate() error {
	if sc.Max <= sc.Min {
		return errors.New("happiness scale: max must be greater than min")
	}
	if sc.Start < sc.Min || sc.Start > sc.Max {
		return fmt.Errorf("happiness scale: start %d outside [%d, %d]", sc.Start, sc.Min, sc.Max)
	}
	return nil
}

// Clamp bounds a score to the scale.
func (sc HappinessScale) Clamp(s HappinessScore) HappinessScore {
	if s < sc.Min {
		return sc.Min
	}
	if s > sc.Max {
		return sc.Max
	}
	return s
}

// CompareMonths returns the adjustment for moving from previous to current.
// Equal amounts leave the score unchanged.
func CompareMonths(previous, current Money) Adjustment {
	switch {
	case current.Cents > previous.Cents:
		return AdjustUp
	case current.Cents < previous.Cents:
		return AdjustDown
	default:
		return AdjustNone
	}
}

// Evaluate applies one monthly comparison to score.
func (sc HappinessScale) Evaluate(score HappinessScore, previous, current Money) (HappinessScore, Adjustment) {
	adj := CompareMonths(previous, current)
	return sc.Clamp(score + HappinessScore(adj)), adj
}

// Level maps a score onto five equal bands of the scale.
func (sc HappinessScale) Level(score HappinessScore) HappinessLevel {
	span := int(sc.Max - sc.Min)
	if span <= 0 {
		return LevelNeutral
	}
	pos := int(sc.Clamp(score)-sc.Min) * 10 / span
	switch {
	case pos < 2:
		return LevelMiserable
	case pos < 4:
		return LevelUnhappy
	case pos < 6:
		return LevelNeutral
	case pos < 8:
		return LevelHappy
	default:
		return LevelEcstatic
	}
}

// Fraction is the score's position within the scale, in [0,1].
func (sc HappinessScale) Fraction(score HappinessScore) float64 {
	span := float64(sc.Max - sc.Min)
	if span <= 0 {
		return 0
	}
	return clampFraction(float64(sc.Clamp(score)-sc.Min) / span)
}

func (l HappinessLevel) Emoji() string {
	switch l {
	case LevelMiserable:
		return "😞"
	case LevelUnhappy:
		return "😕"
	case LevelHappy:
		return "🙂"
	case LevelEcstatic:
		return "🎉"
	default:
		return "😐"
	}
}

func (l HappinessLevel) Label() string {
	switch l {
	case LevelMiserable:
		return "Savings keep slipping month after month"
	case LevelUnhappy:
		return "Savings dipped recently"
	case LevelHappy:
		return "Savings are growing"
	case LevelEcstatic:
		return "Savings have grown month after month!"
	default:
		return "Savings are holding steady"
	}
}

func (a Adjustment) String() string {
	switch a {
	case AdjustUp:
		return "up"
	case AdjustDown:
		return "down"
	default:
		return "unchanged"
	}
}

// MonthStep is one month of a happiness trend.
type MonthStep struct {
	Year       int
	Month      time.Month
	Saved      Money
	Adjustment Adjustment
	Score      HappinessScore
}

// HappinessTrend is the result of folding the monthly comparison over a history.
type HappinessTrend struct {
	Score HappinessScore
	Steps []MonthStep
}

// Last returns the most recent step, if any.
func (t HappinessTrend) Last() (MonthStep, bool) {
	if len(t.Steps) == 0 {
		return MonthStep{}, false
	}
	return t.Steps[len(t.Steps)-1], true
}

// MonthlySavings reduces a history to one amount per calendar month: the
// amount of the latest entry recorded in that month. Months are returned in
// chronological order.
func MonthlySavings(entries []Entry) []MonthStep {
	type key struct {
		year  int
		month time.Month
	}
	latest := make(map[key]Entry, len(entries))
	for _, e := range entries {
		k := key{e.Timestamp.Year(), e.Timestamp.Month()}
		if cur, ok := latest[k]; !ok || !e.Timestamp.Before(cur.Timestamp) {
			latest[k] = e
		}
	}

	steps := make([]MonthStep, 0, len(latest))
	for k, e := range latest {
		steps = append(steps, MonthStep{Year: k.year, Month: k.month, Saved: e.CurrentSaved})
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Year != steps[j].Year {
			return steps[i].Year < steps[j].Year
		}
		return steps[i].Month < steps[j].Month
	})
	return steps
}

// Trend folds the monthly comparison over a history, starting from sc.Start.
// The first month has no predecessor and leaves the score unchanged.
func (sc HappinessScale) Trend(entries []Entry) HappinessTrend {
	steps := MonthlySavings(entries)
	score := sc.Start
	for i := range steps {
		if i > 0 {
			score, steps[i].Adjustment = sc.Evaluate(score, steps[i-1].Saved, steps[i].Saved)
		}
		steps[i].Score = score
	}
	return HappinessTrend{Score: score, Steps: steps}
}
