package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/consent"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
)

func newConsentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Record and review consent decisions",
	}
	cmd.AddCommand(
		newConsentDecisionCmd(a, "grant", consent.ActionAllow),
		newConsentDecisionCmd(a, "deny", consent.ActionDeny),
		newConsentListCmd(a),
		newConsentScanCmd(a),
		newConsentReviewCmd(a),
		newConsentClearCmd(a),
	)
	return cmd
}

func newConsentDecisionCmd(a *app, use string, action consent.Action) *cobra.Command {
	var pii bool
	cmd := &cobra.Command{
		Use:   use + " [scope]",
		Short: fmt.Sprintf("Record a consent decision: %s (scope defaults to %q)", action, consent.ScopeMemory),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := consent.ScopeMemory
			if len(args) == 1 {
				scope = args[0]
			}
			var details map[string]any
			if pii {
				details = map[string]any{"pii": true}
			}

			return a.run(func(eng *engine.Engine) error {
				r, err := eng.Consent.Add(consent.Record{Scope: scope, Action: action, Details: details})
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), r)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", r.Action, r.Scope, r.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pii, "pii", false, "The decision covers personal data")
	return cmd
}

func newConsentListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List consent decisions in the order they were made",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				records := eng.Consent.All()
				if a.jsonOut {
					if records == nil {
						records = []consent.Record{}
					}
					return printJSON(cmd.OutOrStdout(), records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No consent decisions recorded.")
					return nil
				}
				for _, r := range records {
					pii := ""
					if r.PII() {
						pii = " pii"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-5s %s%s  %s\n", r.CreatedAt.Format(time.RFC3339), r.Action, r.Scope, pii, r.ID)
				}
				return nil
			})
		},
	}
}

func newConsentScanCmd(a *app) *cobra.Command {
	var topic string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report whether a memory consent review is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				due := eng.Consent.DriftScanIfDue(consent.DriftOptions{
					PeriodDays: eng.Settings().DriftPeriodDays,
					Topic:      topic,
				})
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]bool{"due": due})
				}
				if due {
					fmt.Fprintln(cmd.OutOrStdout(), "review due")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "up to date")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Topic to attach to the review notice")
	return cmd
}

func newConsentReviewCmd(a *app) *cobra.Command {
	var topic string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Request a consent review now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				eng.Consent.TriggerDriftReview(topic)
				fmt.Fprintln(cmd.OutOrStdout(), "review requested")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Topic to attach to the review notice")
	return cmd
}

func newConsentClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every consent decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			return a.run(func(eng *engine.Engine) error {
				if err := eng.Consent.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "consent cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the clear")
	return cmd
}
