package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Progress is the position of the current savings relative to the goal.
type Progress struct {
	// Fraction is current/goal clamped to [0,1]. It is exactly 1 only when
	// the goal has been reached.
	Fraction  float64
	Remaining Money
	Reached   bool
}

// CalculateProgress computes the progress ratio and the amount still missing.
// A goal that is not strictly positive is rejected before any arithmetic.
func CalculateProgress(goal, current Money) (Progress, error) {
	if goal.Cents <= 0 {
		return Progress{}, ErrInvalidGoal
	}
	if current.Cents < 0 {
		return Progress{}, ErrNegativeAmount
	}

	p := Progress{Remaining: Money{Cents: max(goal.Cents-current.Cents, 0)}}
	if current.Cents >= goal.Cents {
		p.Fraction = 1
		p.Reached = true
		return p, nil
	}

	p.Fraction = clampFraction(ratio(current, goal))
	// Rounding can push a ratio just below one up to exactly one.
	if p.Fraction >= 1 {
		p.Fraction = math.Nextafter(1, 0)
	}
	return p, nil
}

// Percent renders the fraction with one decimal, e.g. "50.0%".
func (p Progress) Percent() string {
	return formatPercent(p.Fraction)
}

// BarWidth is the fraction as a whole percentage suitable for a CSS width.
// It never reaches 100 before the goal does.
func (p Progress) BarWidth() int {
	return barWidth(p.Fraction)
}

func ratio(num, den Money) float64 {
	if den.Cents == 0 {
		return 0
	}
	return decimal.NewFromInt(num.Cents).
		DivRound(decimal.NewFromInt(den.Cents), 8).
		InexactFloat64()
}

func clampFraction(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

func barWidth(f float64) int {
	w := int(math.Floor(f * 100))
	if w < 0 {
		return 0
	}
	if w > 100 {
		return 100
	}
	return w
}
