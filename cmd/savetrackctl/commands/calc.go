package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"savetrack/internal/core"
)

func calcCmd(opts *rootOptions) *cobra.Command {
	var goal, target, current, previous string

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Evaluate savings progress without storing anything",
		Example: `  savetrackctl calc --goal 6000 --current 3000
  savetrackctl calc --goal 6000 --target 3000 --current 2500 --previous 2000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseCalcState(goal, target, current, previous)
			if err != nil {
				return err
			}
			sc := opts.cfg.Tracker.Scale()
			snap, err := core.Evaluate(state, sc, sc.Start)
			if err != nil {
				return err
			}
			printSnapshot(cmd, snap, opts.cfg.Tracker.Currency, sc)
			return nil
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "savings goal")
	cmd.Flags().StringVar(&target, "target", "", "expected monthly savings")
	cmd.Flags().StringVar(&current, "current", "0", "amount saved so far")
	cmd.Flags().StringVar(&previous, "previous", "", "amount saved by the end of last month")
	_ = cmd.MarkFlagRequired("goal")
	return cmd
}

func parseCalcState(goal, target, current, previous string) (core.SavingsState, error) {
	var state core.SavingsState
	var err error
	if state.Goal, err = core.ParseAmount(goal); err != nil {
		return state, fmt.Errorf("goal: %w", err)
	}
	if target != "" {
		if state.MonthlyTarget, err = core.ParseAmount(target); err != nil {
			return state, fmt.Errorf("target: %w", err)
		}
	}
	if state.Current, err = core.ParseAmount(current); err != nil {
		return state, fmt.Errorf("current: %w", err)
	}
	if previous != "" {
		prev, err := core.ParseAmount(previous)
		if err != nil {
			return state, fmt.Errorf("previous: %w", err)
		}
		state.PreviousMonthCurrent = &prev
	}
	return state, nil
}

func printSnapshot(cmd *cobra.Command, snap core.Snapshot, currency string, sc core.HappinessScale) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Progress:  %s of %s\n", snap.Progress.Percent(), snap.State.Goal.Format(currency))
	fmt.Fprintf(out, "Remaining: %s\n", snap.Progress.Remaining.Format(currency))
	if snap.Meter.Status == core.MeterNoTarget {
		fmt.Fprintln(out, "Monthly:   no target set")
	} else {
		fmt.Fprintf(out, "Monthly:   %s of %s (%s)\n", snap.Meter.Percent(), snap.State.MonthlyTarget.Format(currency), snap.Meter.Status)
	}
	fmt.Fprintf(out, "Happiness: %s %s (%d/%d)\n", snap.Level.Emoji(), snap.Level.Label(), snap.Score, sc.Max)
	if snap.Compared {
		fmt.Fprintf(out, "Compared with last month: %s\n", snap.Adjustment)
	}
}
