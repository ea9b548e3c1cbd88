package cmd

import (
	"github.com/spf13/cobra"
)

// manifestCmd represents the manifest related commands
var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Commands to manage manifests",
	Long: `Commands to manage manifests.

A manifest maps paths to content references, with some metadata.
Manifests are immutable: every update produces a new manifest reference.`,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}
