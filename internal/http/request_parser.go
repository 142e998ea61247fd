package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"savetrack/internal/core"
	"savetrack/internal/history"
)

// Form field names shared by the page and the handlers.
const (
	fieldGoal          = "goal"
	fieldMonthlyTarget = "monthly_target"
	fieldCurrent       = "current_saved"
	fieldPrevious      = "previous_month"
	fieldTimestamp     = "timestamp"
	fieldUpload        = "history"
)

// FieldError names the form field that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// ParseStateForm reads the tracker inputs. The goal is required; an empty
// monthly target or current amount means zero and an empty previous month
// means unknown.
func ParseStateForm(form url.Values) (core.SavingsState, error) {
	var state core.SavingsState

	goal, err := core.ParseAmount(sanitizeInput(form.Get(fieldGoal)))
	if err != nil {
		return state, &FieldError{Field: fieldGoal, Err: err}
	}
	state.Goal = goal

	if state.MonthlyTarget, err = optionalAmount(form, fieldMonthlyTarget); err != nil {
		return state, err
	}
	if state.Current, err = optionalAmount(form, fieldCurrent); err != nil {
		return state, err
	}

	if v := sanitizeInput(form.Get(fieldPrevious)); v != "" {
		prev, err := core.ParseAmount(v)
		if err != nil {
			return state, &FieldError{Field: fieldPrevious, Err: err}
		}
		state.PreviousMonthCurrent = &prev
	}

	if err := state.Validate(); err != nil {
		return state, &FieldError{Field: fieldGoal, Err: err}
	}
	return state, nil
}

func optionalAmount(form url.Values, field string) (core.Money, error) {
	v := sanitizeInput(form.Get(field))
	if v == "" {
		return core.Money{}, nil
	}
	m, err := core.ParseAmount(v)
	if err != nil {
		return core.Money{}, &FieldError{Field: field, Err: err}
	}
	return m, nil
}

// ParseTimestampForm reads the edited timestamp, defaulting to fallback when empty.
func ParseTimestampForm(form url.Values, fallback time.Time) (time.Time, error) {
	v := sanitizeInput(form.Get(fieldTimestamp))
	if v == "" {
		return fallback, nil
	}
	ts, err := history.ParseTimestamp(v)
	if err != nil {
		return time.Time{}, &FieldError{Field: fieldTimestamp, Err: err}
	}
	return ts, nil
}

// parseEntryID reads the {id} path value.
func parseEntryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", r.PathValue("id"))
	}
	return id, nil
}

// validationMessage is the re-entry prompt shown for a rejected input.
func validationMessage(err error) string {
	label := "Amount"
	var fe *FieldError
	if errors.As(err, &fe) {
		label = fieldLabels[fe.Field]
	}
	switch {
	case errors.Is(err, core.ErrInvalidGoal):
		return "The savings goal must be greater than zero. Please re-enter it."
	case errors.Is(err, core.ErrNegativeAmount):
		return label + " cannot be negative. Please re-enter it."
	case errors.Is(err, core.ErrInvalidTimestamp):
		return "The timestamp is not a valid date and time. Please re-enter it."
	default:
		return label + " must be a number. Please re-enter it."
	}
}

var fieldLabels = map[string]string{
	fieldGoal:          "Savings goal",
	fieldMonthlyTarget: "Expected monthly savings",
	fieldCurrent:       "Amount saved",
	fieldPrevious:      "Previous month's savings",
	fieldTimestamp:     "Timestamp",
}

// sanitizeInput trims whitespace and drops control characters.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
