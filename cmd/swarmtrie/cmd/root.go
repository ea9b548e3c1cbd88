// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/config"
	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swarmtrie",
	Short: "swarmtrie stores content as swarm chunk tries",
	Long: `swarmtrie stores files as tries of content-addressed chunks, with optional encryption
and erasure coding, and organizes them with manifests.

Chunks are kept in a local store: a directory, an embedded badger or pebble database.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		flags.root.t0 = time.Now()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.Metrics {
			metrics.Flush()
		}
	},
}

var cfg *config.Config

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		wrapFatalWithCodef(1, "%v", err)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	rootCmd.SetGlobalNormalizationFunc(normalizeFlag)

	addConfigFileFlag(rootCmd)
	addLogLevelFlag(rootCmd)
	addBackendFlag(rootCmd)
	addStorePathFlag(rootCmd)
	addRedundancyFlag(rootCmd)
	addStrategyFlag(rootCmd)
	addEncryptFlag(rootCmd)
	addMetricsFlag(rootCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	switch {
	case flags.root.configFile != "":
		viper.SetConfigFile(flags.root.configFile)
	case os.Getenv(config.EnvPrefix+"_CONFIG") != "":
		viper.SetConfigFile(os.Getenv(config.EnvPrefix + "_CONFIG"))
	default:
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.swarmtrie")
		viper.AddConfigPath("/etc/swarmtrie")
		viper.SetConfigName("swarmtrie")
	}

	if err := viper.ReadInConfig(); err == nil {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	} else if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
		logStdErr("reading config file: %v\n", err)
	}
}

// normalizeFlag accepts flag names spelled like configuration keys, e.g. --store_path
func normalizeFlag(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func bindFlag(cmd *cobra.Command, key, name string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}
