package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/trajectory"
)

// --- signal command ---

func newSignalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Record and list outcome signals",
	}
	cmd.AddCommand(newSignalAddCmd(a), newSignalListCmd(a))
	return cmd
}

func newSignalAddCmd(a *app) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "add <topic> <score>",
		Short: "Record an outcome score in [-1,1] for a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("score %q is not a number", args[1])
			}
			if score < -1 || score > 1 {
				return fmt.Errorf("score %v outside [-1,1]", score)
			}

			return a.run(func(eng *engine.Engine) error {
				s, err := eng.Signals.Record(args[0], score, source)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), s)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recorded %s %s=%.2f\n", s.ID, s.Topic, s.Score)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "cli", "Where the outcome was observed")
	return cmd
}

func newSignalListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [topic]",
		Short: "List recorded signals, oldest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(eng *engine.Engine) error {
				var signals []trajectory.Signal
				for _, s := range eng.Signals.All() {
					if len(args) == 0 || strings.EqualFold(s.Topic, strings.TrimSpace(args[0])) {
						signals = append(signals, s)
					}
				}
				if a.jsonOut {
					if signals == nil {
						signals = []trajectory.Signal{}
					}
					return printJSON(cmd.OutOrStdout(), signals)
				}
				if len(signals) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No signals recorded.")
					return nil
				}
				for _, s := range signals {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %+.2f (%s)\n", s.CreatedAt.Format(time.RFC3339), s.Topic, s.Score, s.Source)
				}
				return nil
			})
		},
	}
}

// --- trajectory command ---

func newTrajectoryCmd(a *app) *cobra.Command {
	var opts trajectory.Options
	cmd := &cobra.Command{
		Use:   "trajectory <topic>",
		Short: "Classify a topic's recent outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(eng *engine.Engine) error {
				snap := eng.Trajectory.Compute(args[0], opts)
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				ev := snap.Evidence
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (avg %.2f, trend %.2f, n=%d, density %.2f)\n",
					snap.Topic, snap.Stance, ev.Avg, ev.Trend, ev.N, ev.Density)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Window, "window", 0, "Number of recent scores to consider")
	cmd.Flags().IntVar(&opts.TrendWindow, "trend-window", 0, "Number of scores in the trend average")
	return cmd
}
