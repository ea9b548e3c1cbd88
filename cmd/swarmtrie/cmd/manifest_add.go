package cmd

import (
	"context"
	"fmt"

	"github.com/oneconcern/swarmtrie/pkg/cafs"
	"github.com/oneconcern/swarmtrie/pkg/swarm"
	"github.com/spf13/cobra"
)

var manifestAddCmd = &cobra.Command{
	Use:   "add <path> <file>",
	Short: "Add a file to a manifest",
	Long: `Upload a file and add it to a manifest at some path.

The reference of the updated manifest is printed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "manifest add", err) }()

		var manifest swarm.Reference
		if flags.manifest.ref != "" {
			if manifest, err = parseReference(flags.manifest.ref); err != nil {
				return err
			}
		}

		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		in, err := openInput(args[1])
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()

		ctx := context.Background()
		res, err := fs.Put(ctx, in)
		if err != nil {
			return errCmd.WrapMessage("upload %s: %v", args[1], err)
		}

		updated, err := fs.ManifestAdd(ctx, manifest, cafs.ManifestEntry{
			Path:     args[0],
			Ref:      res.Ref,
			Metadata: flags.manifest.metadata,
		})
		if err != nil {
			return errCmd.WrapMessage("add %s to manifest: %v", args[0], err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), updated)
		return err
	},
}

func init() {
	addManifestFlag(manifestAddCmd)
	addMetadataFlag(manifestAddCmd)

	manifestCmd.AddCommand(manifestAddCmd)
}
