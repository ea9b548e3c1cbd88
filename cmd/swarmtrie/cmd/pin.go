package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Commands to manage pinned content",
	Long:  "Pinned content is kept when deleting other content sharing some of its chunks",
}

var pinAddCmd = &cobra.Command{
	Use:   "add <reference>",
	Short: "Pin some content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "pin add", err) }()

		ref, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		return fs.Pin(context.Background(), ref)
	},
}

var pinRemoveCmd = &cobra.Command{
	Use:     "rm <reference>",
	Aliases: []string{"remove"},
	Short:   "Unpin some content",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "pin rm", err) }()

		ref, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		return fs.Unpin(context.Background(), ref)
	},
}

var pinListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List pinned root chunks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "pin ls", err) }()

		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		pins, err := fs.Pins(context.Background())
		if err != nil {
			return err
		}
		for _, addr := range pins {
			if _, err = fmt.Fprintln(cmd.OutOrStdout(), addr); err != nil {
				return err
			}
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <reference>",
	Short: "Delete some content from the chunk store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "delete", err) }()

		ref, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		return fs.Delete(context.Background(), ref)
	},
}

func init() {
	pinCmd.AddCommand(pinAddCmd, pinRemoveCmd, pinListCmd)
	rootCmd.AddCommand(pinCmd, deleteCmd)
}
