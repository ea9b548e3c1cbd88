package cmd

import (
	"github.com/spf13/cobra"
)

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage a config",
	Long: `Commands to manage the swarmtrie CLI config.

Configuration for swarmtrie is the common set of settings that are needed for most commands and do not change across runs.
Every setting may be overridden by an environment variable, e.g. SWARMTRIE_REDUNDANCY_LEVEL=STRONG.`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
