package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var manifestRemoveCmd = &cobra.Command{
	Use:     "rm <manifest> <path>...",
	Aliases: []string{"remove"},
	Short:   "Remove paths from a manifest",
	Long: `Remove paths from a manifest, with everything below them.

The reference of the updated manifest is printed.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "manifest rm", err) }()

		manifest, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		updated, err := fs.ManifestRemove(context.Background(), manifest, args[1:]...)
		if err != nil {
			return errCmd.WrapMessage("remove from manifest %s: %v", manifest, err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), updated)
		return err
	},
}

func init() {
	manifestCmd.AddCommand(manifestRemoveCmd)
}
