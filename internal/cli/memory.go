package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/engine"
	"github.com/Brahmamvp/brahma-transparency-engine-sub001/internal/memory"
)

var errNotConfirmed = errors.New("refusing without --yes")

func newMemoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect and manage stored memories",
	}
	cmd.AddCommand(
		newMemoryAddCmd(a),
		newMemoryQueryCmd(a),
		newMemoryListCmd(a),
		newMemoryDeleteCmd(a),
		newMemoryDecayCmd(a),
		newMemoryWipeCmd(a),
	)
	return cmd
}

func newMemoryAddCmd(a *app) *cobra.Command {
	var (
		kind   string
		ttl    time.Duration
		weight float64
		source string
	)
	cmd := &cobra.Command{
		Use:   "add <topic> <content...>",
		Short: "Store a memory entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := memory.ParseKind(kind)
			if err != nil {
				return err
			}
			in := memory.Input{
				Topic:   args[0],
				Kind:    k,
				Content: strings.Join(args[1:], " "),
				TTL:     ttl,
				Source:  source,
			}
			if cmd.Flags().Changed("weight") {
				in.Weight = &weight
			}

			return a.run(func(eng *engine.Engine) error {
				e, err := eng.Memory.Upsert(in)
				if err != nil {
					return err
				}
				if a.jsonOut {
					return printJSON(cmd.OutOrStdout(), e)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s [%s] %s\n", e.ID, e.Kind, e.Topic)
				if n := len(e.Redactions); n > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "redacted %d secret(s)\n", n)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&kind, "kind", "k", string(memory.Fleeting), "Memory kind: Fleeting, AdaptiveAnchor, Legacy or Meta")
	f.DurationVar(&ttl, "ttl", 0, "Decay horizon for this entry (fleeting only)")
	f.Float64Var(&weight, "weight", memory.DefaultWeight, "Entry weight")
	f.StringVar(&source, "source", "cli", "Origin of the entry")
	return cmd
}

func newMemoryQueryCmd(a *app) *cobra.Command {
	var (
		kinds []string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "query <topic>",
		Short: "List memories for a topic, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := memory.QueryOptions{Limit: limit}
			for _, s := range kinds {
				k, err := memory.ParseKind(s)
				if err != nil {
					return err
				}
				opts.Kinds = append(opts.Kinds, k)
			}
			return a.run(func(eng *engine.Engine) error {
				if !cmd.Flags().Changed("limit") {
					opts.Limit = eng.Settings().QueryLimit
				}
				return printEntries(cmd, a.jsonOut, eng.Memory.QueryByTopic(args[0], opts))
			})
		},
	}
	cmd.Flags().StringSliceVarP(&kinds, "kind", "k", nil, "Restrict to kinds (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", memory.DefaultQueryLimit, "Maximum number of results")
	return cmd
}

func newMemoryListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				return printEntries(cmd, a.jsonOut, eng.Memory.All())
			})
		},
	}
}

func newMemoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(eng *engine.Engine) error {
				ok, err := eng.Memory.Delete(args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("memory %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newMemoryDecayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decay",
		Short: "Remove fleeting memories past their horizon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(eng *engine.Engine) error {
				n, err := eng.Decay()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d fleeting memories\n", n)
				return nil
			})
		},
	}
}

func newMemoryWipeCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every stored memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			return a.run(func(eng *engine.Engine) error {
				if err := eng.Memory.Wipe(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "memory wiped")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the wipe")
	return cmd
}

func printEntries(cmd *cobra.Command, asJSON bool, entries []memory.Entry) error {
	if asJSON {
		if entries == nil {
			entries = []memory.Entry{}
		}
		return printJSON(cmd.OutOrStdout(), entries)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No memories found.")
		return nil
	}
	for i, e := range entries {
		fmt.Fprintf(out, "%d. %s [%s] %s (weight %.2f, %s)\n", i+1, e.ID, e.Kind, e.Topic, e.Weight, e.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "   %s\n", e.Content)
	}
	return nil
}
