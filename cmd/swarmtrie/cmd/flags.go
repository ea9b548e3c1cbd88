// Copyright © 2018 One Concern

package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

type flagsT struct {
	root struct {
		configFile string
		logLevel   string
		backend    string
		storePath  string
		level      string
		strategy   string
		encrypt    bool
		metrics    bool
		t0         time.Time
		m          *M
	}
	content struct {
		output string
		pin    bool
	}
	manifest struct {
		ref      string
		prefix   string
		metadata map[string]string
		output   string
	}
	config struct {
		output string
	}
}

var flags = flagsT{}

func addConfigFileFlag(cmd *cobra.Command) string {
	name := "config"
	cmd.PersistentFlags().StringVar(&flags.root.configFile, name, "", "The configuration file. Defaults to swarmtrie.yaml in ., $HOME/.swarmtrie or /etc/swarmtrie")
	return name
}

func addLogLevelFlag(cmd *cobra.Command) string {
	name := "loglevel"
	cmd.PersistentFlags().StringVar(&flags.root.logLevel, name, "", "The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug")
	bindFlag(cmd, "log_level", name)
	return name
}

func addBackendFlag(cmd *cobra.Command) string {
	name := "store"
	cmd.PersistentFlags().StringVar(&flags.root.backend, name, "", "The chunk store backend: localfs, badger, pebble or memory")
	bindFlag(cmd, "store.backend", name)
	return name
}

func addStorePathFlag(cmd *cobra.Command) string {
	name := "store-path"
	cmd.PersistentFlags().StringVar(&flags.root.storePath, name, "", "The location of the chunk store")
	bindFlag(cmd, "store.path", name)
	return name
}

func addRedundancyFlag(cmd *cobra.Command) string {
	name := "redundancy"
	cmd.PersistentFlags().StringVar(&flags.root.level, name, "", "The redundancy level of uploads: NONE, MEDIUM, STRONG, INSANE or PARANOID")
	bindFlag(cmd, "redundancy.level", name)
	return name
}

func addStrategyFlag(cmd *cobra.Command) string {
	name := "strategy"
	cmd.PersistentFlags().StringVar(&flags.root.strategy, name, "", "The retrieval strategy: NONE, DATA, PROX or RACE")
	bindFlag(cmd, "redundancy.strategy", name)
	return name
}

func addEncryptFlag(cmd *cobra.Command) string {
	name := "encrypt"
	cmd.PersistentFlags().BoolVar(&flags.root.encrypt, name, false, "Encrypt uploaded content")
	bindFlag(cmd, "encrypt", name)
	return name
}

func addMetricsFlag(cmd *cobra.Command) string {
	name := "metrics"
	cmd.PersistentFlags().BoolVar(&flags.root.metrics, name, false, "Collect metrics and log them at debug level")
	bindFlag(cmd, "metrics", name)
	return name
}

func addOutputFlag(cmd *cobra.Command, target *string, usage string) string {
	name := "output"
	cmd.Flags().StringVarP(target, name, "o", "", usage)
	return name
}

func addPinFlag(cmd *cobra.Command) string {
	name := "pin"
	cmd.Flags().BoolVar(&flags.content.pin, name, false, "Pin the uploaded content")
	return name
}

func addManifestFlag(cmd *cobra.Command) string {
	name := "manifest"
	cmd.Flags().StringVar(&flags.manifest.ref, name, "", "The reference of the manifest to update. A new manifest is created when empty")
	return name
}

func addPrefixFlag(cmd *cobra.Command) string {
	name := "prefix"
	cmd.Flags().StringVar(&flags.manifest.prefix, name, "", "List only paths starting with this prefix")
	return name
}

func addMetadataFlag(cmd *cobra.Command) string {
	name := "meta"
	cmd.Flags().StringToStringVar(&flags.manifest.metadata, name, nil, "Metadata for the entry, as key=value pairs")
	return name
}
