package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// SavingsState is the input of one evaluation: what the user typed in.
	SavingsState struct {
		Goal          Money
		Current       Money
		MonthlyTarget Money
		// PreviousMonthCurrent is the amount saved by the end of the previous
		// month, when known.
		PreviousMonthCurrent *Money
	}

	// Entry is one saved row of a session's history.
	Entry struct {
		ID                int64
		SessionID         string
		Timestamp         time.Time
		Goal              Money
		MonthlyTarget     Money
		CurrentSaved      Money
		Remaining         Money
		ProgressFraction  float64
		HappinessFraction float64
		// Version counts edits; stores that do not track it leave it zero.
		Version int64
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrInvalidGoal      = errors.New("goal must be greater than zero")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrEmptySession     = errors.New("empty session id")
)

// IsValidationError reports whether err is one of the input validation errors
// a user can fix by re-entering values.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrInvalidGoal) ||
		errors.Is(err, ErrInvalidTimestamp)
}

func (s SavingsState) Validate() error {
	if s.Goal.Cents <= 0 {
		return ErrInvalidGoal
	}
	if err := s.Current.Validate(); err != nil {
		return err
	}
	if err := s.MonthlyTarget.Validate(); err != nil {
		return err
	}
	if s.PreviousMonthCurrent != nil {
		if err := s.PreviousMonthCurrent.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TimestampPrecision is the resolution entries are stored and exported at.
// Anything finer would not survive a CSV round trip.
const TimestampPrecision = time.Microsecond

// EntryKey identifies duplicate rows: same timestamp, same current savings.
type EntryKey struct {
	Micros int64
	Cents  int64
}

func (e Entry) Key() EntryKey {
	return EntryKey{
		Micros: e.Timestamp.Truncate(TimestampPrecision).UnixMicro(),
		Cents:  e.CurrentSaved.Cents,
	}
}

// SameInputs reports whether two rows were recorded with identical inputs.
func (e Entry) SameInputs(o Entry) bool {
	return e.Key() == o.Key() &&
		e.Goal == o.Goal &&
		e.MonthlyTarget == o.MonthlyTarget
}

// NewEntry builds a history row for the given state, filling the derived columns.
func NewEntry(sessionID string, ts time.Time, state SavingsState) (Entry, error) {
	e := Entry{
		SessionID:     sessionID,
		Timestamp:     ts,
		Goal:          state.Goal,
		MonthlyTarget: state.MonthlyTarget,
		CurrentSaved:  state.Current,
	}
	if err := e.Recompute(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// State returns the inputs the entry was recorded with.
func (e Entry) State() SavingsState {
	return SavingsState{
		Goal:          e.Goal,
		Current:       e.CurrentSaved,
		MonthlyTarget: e.MonthlyTarget,
	}
}

// Recompute validates the entry, normalises the timestamp to UTC at
// TimestampPrecision and refreshes Remaining and both fractions from Goal,
// MonthlyTarget and CurrentSaved.
func (e *Entry) Recompute() error {
	if e.Timestamp.IsZero() {
		return ErrInvalidTimestamp
	}
	e.Timestamp = e.Timestamp.UTC().Truncate(TimestampPrecision)
	state := e.State()
	if err := state.Validate(); err != nil {
		return err
	}
	p, err := CalculateProgress(state.Goal, state.Current)
	if err != nil {
		return err
	}
	e.Remaining = p.Remaining
	e.ProgressFraction = p.Fraction
	e.HappinessFraction = MonthlyMeter(state.MonthlyTarget, state.Current).Fraction
	return nil
}

// ValidateSessionID rejects blank session identifiers.
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptySession
	}
	return nil
}
