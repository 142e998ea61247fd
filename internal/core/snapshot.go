package core

// Snapshot is everything rendered for one set of inputs.
type Snapshot struct {
	State      SavingsState
	Progress   Progress
	Meter      Meter
	Score      HappinessScore
	Adjustment Adjustment
	Level      HappinessLevel
	// Compared is false when there was no previous month to compare against.
	Compared bool
}

// Evaluate validates the state and runs the progress calculator, the monthly
// meter and, when the previous month is known, the happiness evaluator
// starting from base.
func Evaluate(state SavingsState, scale HappinessScale, base HappinessScore) (Snapshot, error) {
	if err := state.Validate(); err != nil {
		return Snapshot{}, err
	}
	progress, err := CalculateProgress(state.Goal, state.Current)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		State:    state,
		Progress: progress,
		Meter:    MonthlyMeter(state.MonthlyTarget, state.Current),
		Score:    scale.Clamp(base),
	}
	if state.PreviousMonthCurrent != nil {
		snap.Score, snap.Adjustment = scale.Evaluate(snap.Score, *state.PreviousMonthCurrent, state.Current)
		snap.Compared = true
	}
	snap.Level = scale.Level(snap.Score)
	return snap, nil
}
