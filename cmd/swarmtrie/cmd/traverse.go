package cmd

import (
	"context"
	"fmt"

	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/oneconcern/swarmtrie/pkg/traversal"
	"github.com/spf13/cobra"
)

var traverseCmd = &cobra.Command{
	Use:   "traverse <reference>",
	Short: "List all the chunks of some content",
	Long: `List all the chunks reachable from some reference, including parities and
the content of manifests.

Missing and invalid chunks are reported, and make the command fail.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "traverse", err) }()

		ref, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		out := cmd.OutOrStdout()
		var broken int
		err = fs.Traverse(context.Background(), ref, traversal.Callbacks{
			OnFound: func(v traversal.Visit) error {
				kind := v.Kind.String()
				if v.Manifest {
					kind += ",manifest"
				}
				_, werr := fmt.Fprintf(out, "%s %s\n", v.Address, kind)
				return werr
			},
			OnNotFound: func(addr swarm.Address) {
				broken++
				_, _ = fmt.Fprintf(out, "%s missing\n", addr)
			},
			OnInvalid: func(addr swarm.Address, verr error) {
				broken++
				_, _ = fmt.Fprintf(out, "%s invalid: %v\n", addr, verr)
			},
		})
		if err != nil {
			return err
		}
		if broken > 0 {
			return errCmd.WrapMessage("%d chunks are missing or invalid", broken)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(traverseCmd)
}
