package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"savetrack/internal/core"
)

// Tracker holds the tracker defaults that can be overridden from a TOML file:
//
//	currency = "ZAR"
//	default_goal = "6000"
//	default_monthly_target = "3000"
//	input_step = "500"
//
//	[happiness]
//	min = 0
//	max = 10
//	start = 5
type Tracker struct {
	Currency             string          `toml:"currency"`
	DefaultGoal          core.Money      `toml:"default_goal"`
	DefaultMonthlyTarget core.Money      `toml:"default_monthly_target"`
	InputStep            core.Money      `toml:"input_step"`
	Happiness            HappinessConfig `toml:"happiness"`
}

type HappinessConfig struct {
	Min   int `toml:"min"`
	Max   int `toml:"max"`
	Start int `toml:"start"`
}

func DefaultTracker() Tracker {
	sc := core.DefaultHappinessScale()
	return Tracker{
		Currency:             core.DefaultCurrency,
		DefaultGoal:          core.Units(6000),
		DefaultMonthlyTarget: core.Units(3000),
		InputStep:            core.Units(500),
		Happiness:            HappinessConfig{Min: int(sc.Min), Max: int(sc.Max), Start: int(sc.Start)},
	}
}

// Scale converts the happiness settings to a core scale.
func (t Tracker) Scale() core.HappinessScale {
	return core.HappinessScale{
		Min:   core.HappinessScore(t.Happiness.Min),
		Max:   core.HappinessScore(t.Happiness.Max),
		Start: core.HappinessScore(t.Happiness.Start),
	}
}

func (t Tracker) Validate() error {
	var errs []error
	if t.Currency == "" {
		errs = append(errs, errors.New("tracker currency cannot be empty"))
	}
	if t.DefaultGoal.Cents <= 0 {
		errs = append(errs, fmt.Errorf("tracker default goal %s: must be greater than zero", t.DefaultGoal))
	}
	if t.DefaultMonthlyTarget.Cents < 0 {
		errs = append(errs, fmt.Errorf("tracker default monthly target %s: cannot be negative", t.DefaultMonthlyTarget))
	}
	if t.InputStep.Cents <= 0 {
		errs = append(errs, fmt.Errorf("tracker input step %s: must be greater than zero", t.InputStep))
	}
	if err := t.Scale().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadTrackerFile reads tracker defaults from path. Keys missing from the
// file keep their default values.
func LoadTrackerFile(path string) (Tracker, error) {
	t := DefaultTracker()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading tracker config: %w", err)
	}
	md, err := toml.Decode(string(data), &t)
	if err != nil {
		return t, fmt.Errorf("parsing tracker config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return t, fmt.Errorf("parsing tracker config: unknown keys %v", undecoded)
	}
	return t, nil
}
