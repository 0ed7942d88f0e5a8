package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
)

var errKeysUnsupported = errors.New("listing keys is not supported by the redis backend")

// --- keys command ---

func newKeysCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the stored collections, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(_ *engine.Engine) error {
				if a.keys == nil {
					return errKeysUnsupported
				}
				prefix := ""
				if !all && a.namespace != "" {
					prefix = a.namespace + ":"
				}
				keys, err := a.keys(prefix)
				if err != nil {
					return err
				}

				if a.jsonOut {
					if keys == nil {
						keys = []string{}
					}
					return printJSON(cmd.OutOrStdout(), keys)
				}
				if len(keys) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No records stored.")
					return nil
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include keys outside the configured namespace")
	return cmd
}
