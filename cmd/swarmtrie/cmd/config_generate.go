package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a config",
	Long: `Generate a config file from the current settings.

The config is written to stdout, or to the file specified with --output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() { cliUsage(flags.root.t0, "config generate", err) }()

		o, err := cfg.YAML()
		if err != nil {
			return errCmd.WrapMessage("serialize config to yaml: %v", err)
		}
		if flags.config.output == "" {
			_, err = cmd.OutOrStdout().Write(o)
			return err
		}
		if err = os.MkdirAll(filepath.Dir(flags.config.output), 0o700); err != nil {
			return err
		}
		return os.WriteFile(flags.config.output, o, 0o600)
	},
}

func init() {
	addOutputFlag(configGenerateCmd, &flags.config.output, "The file to write the config to. Defaults to stdout")

	configCmd.AddCommand(configGenerateCmd)
}
