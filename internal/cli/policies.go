package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fanin/internal/aggregate"
)

func newPoliciesCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "policies",
		Short: "List and describe aggregation policies",
		Long: `List and describe the aggregation policies built into fanin.

Examples:
  fanin policies list
  fanin policies show fail-soft
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available policies",
		Long: `List all registered policies, sorted by ID.

Output:
  ----------------------------------------
  POLICY: {ID}
  ----------------------------------------
  {TITLE}
  {DESCRIPTION}
  Inputs: {shared | per service}
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range aggregate.List() {
				if quiet {
					fmt.Fprintln(cmd.OutOrStdout(), p.ID())
					continue
				}
				printPolicy(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	list.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print policy IDs")

	show := &cobra.Command{
		Use:   "show [policy-id]",
		Short: "Show details of one policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := aggregate.Resolve(args[0])
			if err != nil {
				return err
			}
			printPolicy(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func printPolicy(w io.Writer, p aggregate.Policy) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "POLICY: %s\n", p.ID())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, p.Title())
	fmt.Fprintln(w, p.Description())
	if p.SharedInput() {
		fmt.Fprintln(w, "Inputs: shared (exactly one --input)")
	} else {
		fmt.Fprintln(w, "Inputs: per service (one --input per service, or one for all)")
	}
	fmt.Fprintln(w)
}
