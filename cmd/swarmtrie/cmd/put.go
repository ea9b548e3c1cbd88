package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "Upload a file",
	Long: `Upload a file to the chunk store, and print its reference.

Use "-" to upload from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "put", err) }()

		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		in, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = in.Close() }()

		res, err := fs.Put(context.Background(), in)
		if err != nil {
			return errCmd.WrapMessage("upload %s: %v", args[0], err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Ref)
		return err
	},
}

func init() {
	addPinFlag(putCmd)

	rootCmd.AddCommand(putCmd)
}
