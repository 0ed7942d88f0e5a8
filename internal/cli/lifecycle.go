package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/checkpoint"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/events"
)

// signalFlags are the user-signal flags shared by prepare and finalize.
type signalFlags struct {
	emotion     string
	constraints map[string]string
}

func (f *signalFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.emotion, "emotion", "", "Detected emotional state, e.g. anxious")
	cmd.Flags().StringToStringVar(&f.constraints, "constraint", nil, "Constraint weight in [0,1], e.g. --constraint financial=0.8")
}

func (f *signalFlags) signals() (checkpoint.UserSignals, error) {
	s := checkpoint.UserSignals{Emotion: f.emotion}
	if len(f.constraints) == 0 {
		return s, nil
	}
	s.Constraints = make(map[string]float64, len(f.constraints))
	for k, v := range f.constraints {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return s, fmt.Errorf("constraint %s: %q is not a number", k, v)
		}
		s.Constraints[k] = w
	}
	return s, nil
}

// --- prepare command ---

func newPrepareCmd(a *app) *cobra.Command {
	var sf signalFlags
	cmd := &cobra.Command{
		Use:   "prepare [input...]",
		Short: "Assemble the continuity context for a user message",
		Long:  "Extract the topic, sweep decayed memories, classify the trajectory and print the context block injected ahead of generation.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signals, err := sf.signals()
			if err != nil {
				return err
			}
			return a.run(func(eng *engine.Engine) error {
				var notices []events.DriftPayload
				unsub := eng.Bus.Subscribe(events.DriftDue, func(ev events.Event) {
					if p, ok := ev.Payload.(events.DriftPayload); ok {
						notices = append(notices, p)
					}
				})
				defer unsub()

				b := eng.Prepare(strings.Join(args, " "), signals)
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), b)
				}
				fmt.Fprintln(cmd.OutOrStdout(), b.Text)
				for _, n := range notices {
					fmt.Fprintf(cmd.ErrOrStderr(), "consent review due (%s)\n", n.Reason)
				}
				return nil
			})
		},
	}
	sf.bind(cmd)
	return cmd
}

// --- finalize command ---

func newFinalizeCmd(a *app) *cobra.Command {
	var (
		sf     signalFlags
		args   engine.FinalizeArgs
		stance string
		cost   float64
	)
	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Check guidance against the dignity rules and store it",
		Long: "Run the checkpoint over the response about to be delivered, apply the consent gate " +
			"and, with --store, persist the guidance as an adaptive anchor memory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signals, err := sf.signals()
			if err != nil {
				return err
			}
			args.UserSignals = signals
			if stance != "" {
				args.Guidance = &engine.Guidance{Stance: stance}
			}
			if cmd.Flags().Changed("cost") {
				args.SuggestedAction = &checkpoint.SuggestedAction{Cost: cost}
			}

			return a.run(func(eng *engine.Engine) error {
				res := eng.Finalize(args)
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), res)
				}
				printFinalize(cmd, res)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&args.Topic, "topic", "", "Topic the guidance belongs to")
	f.StringVar(&stance, "stance", "", "Guidance text to persist")
	f.BoolVar(&args.StoreMemory, "store", false, "Persist the guidance as memory")
	f.BoolVar(&args.AboutToStorePII, "pii", false, "The memory carries personal data")
	f.StringVar(&args.Tone, "tone", "", "Tone of the response, e.g. urgent")
	f.Float64Var(&cost, "cost", 0, "Cost of the suggested action in [0,1]")
	sf.bind(cmd)
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func printFinalize(cmd *cobra.Command, res engine.Result) {
	out := cmd.OutOrStdout()
	switch {
	case res.OK && res.Stored:
		fmt.Fprintf(out, "ok: stored %s (weight %.2f)\n", res.Entry.ID, res.Entry.Weight)
	case res.OK:
		fmt.Fprintln(out, "ok")
	default:
		fmt.Fprintf(out, "rejected: %s\n", res.Reason)
	}

	cp := res.Checkpoint
	fmt.Fprintf(out, "checkpoint: pass=%t confidence=%.2f\n", cp.Pass, cp.Confidence)
	findings := append([]checkpoint.Finding(nil), cp.Findings...)
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].RuleID < findings[j].RuleID })
	for _, fd := range findings {
		fmt.Fprintf(out, "  [%s] %s: %s\n", fd.Severity, fd.RuleID, fd.Message)
	}
	if res.Needed != nil {
		fmt.Fprintf(out, "consent needed for scope %q; grant with: acf consent grant %s\n", res.Needed.Scope, res.Needed.Scope)
	}
}
