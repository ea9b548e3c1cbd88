package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <reference>",
	Short: "Download some content",
	Long:  "Download the content with some reference, to a file or to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "get", err) }()

		ref, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		r, err := fs.Get(context.Background(), ref)
		if err != nil {
			return errCmd.WrapMessage("download %s: %v", ref, err)
		}
		defer func() { _ = r.Close() }()

		return writeOutput(cmd.OutOrStdout(), flags.content.output, r)
	},
}

func init() {
	addOutputFlag(getCmd, &flags.content.output, "The file to write the content to. Defaults to stdout")

	rootCmd.AddCommand(getCmd)
}
