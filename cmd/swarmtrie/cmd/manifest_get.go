package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var manifestGetCmd = &cobra.Command{
	Use:   "get <manifest> <path>",
	Short: "Download a file from a manifest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "manifest get", err) }()

		manifest, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		ctx := context.Background()
		e, err := fs.ManifestLookup(ctx, manifest, args[1])
		if err != nil {
			return errCmd.WrapMessage("lookup %s: %v", args[1], err)
		}
		r, err := fs.Get(ctx, e.Ref)
		if err != nil {
			return errCmd.WrapMessage("download %s: %v", args[1], err)
		}
		defer func() { _ = r.Close() }()

		return writeOutput(cmd.OutOrStdout(), flags.manifest.output, r)
	},
}

func init() {
	addOutputFlag(manifestGetCmd, &flags.manifest.output, "The file to write the content to. Defaults to stdout")

	manifestCmd.AddCommand(manifestGetCmd)
}
