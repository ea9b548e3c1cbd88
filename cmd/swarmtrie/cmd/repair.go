package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair <reference>",
	Short: "Restore missing chunks of some content",
	Long: `Restore missing chunks of some content from replicas of its root and from
erasure coded parities.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "repair", err) }()

		ref, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		res, err := fs.Repair(context.Background(), ref)
		if err != nil {
			return errCmd.WrapMessage("repair %s: %v", ref, err)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "recovered %d chunks\n", res.Recovered)
		for _, addr := range res.Missing {
			_, _ = fmt.Fprintf(out, "%s missing\n", addr)
		}
		if len(res.Missing) > 0 {
			return errCmd.WrapMessage("%d chunks could not be recovered", len(res.Missing))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
