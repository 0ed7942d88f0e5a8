package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/audit"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
)

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read or clear the audit trail",
	}
	cmd.AddCommand(newAuditListCmd(a), newAuditClearCmd(a))
	return cmd
}

func newAuditListCmd(a *app) *cobra.Command {
	var action string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				var entries []audit.Entry
				if action != "" {
					entries = eng.Audit.ByAction(action)
				} else {
					entries = eng.Audit.All()
				}

				if a.jsonOut {
					if entries == nil {
						entries = []audit.Entry{}
					}
					return printJSON(cmd.OutOrStdout(), entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Audit trail is empty.")
					return nil
				}
				for _, e := range entries {
					details := ""
					if len(e.Details) > 0 {
						b, _ := json.Marshal(e.Details)
						details = " " + string(b)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %-7s %s%s\n", e.Timestamp.Format(time.RFC3339), e.Severity, e.Action, details)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Only entries with this action")
	return cmd
}

func newAuditClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the audit trail",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				if err := eng.Audit.Clear(func() bool { return yes }); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "audit trail cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the clear")
	return cmd
}
