package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var manifestListCmd = &cobra.Command{
	Use:     "ls <manifest>",
	Aliases: []string{"list"},
	Short:   "List the entries of a manifest",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "manifest ls", err) }()

		manifest, err := parseReference(args[0])
		if err != nil {
			return err
		}
		fs, done, err := openFs()
		if err != nil {
			return err
		}
		defer done()

		entries, err := fs.ManifestList(context.Background(), manifest, flags.manifest.prefix)
		if err != nil {
			return errCmd.WrapMessage("list manifest %s: %v", manifest, err)
		}
		for _, e := range entries {
			if _, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s%s\n", e.Ref, e.Path, formatMetadata(e.Metadata)); err != nil {
				return err
			}
		}
		return nil
	},
}

func formatMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return " " + strings.Join(pairs, ",")
}

func init() {
	addPrefixFlag(manifestListCmd)

	manifestCmd.AddCommand(manifestListCmd)
}
