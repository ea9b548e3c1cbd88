package cmd

import (
	"time"

	"github.com/oneconcern/swarmtrie/pkg/metrics"
)

// M describes metrics for the cmd package
type M struct {
	Usage metrics.UsageMetrics `group:"telemetry" description:"usage stats for swarmtrie CLI"`
}

// cliUsage records a usage metric in the CLI context in a single go.
// This is intended to be used in some defer statement.
func cliUsage(t0 time.Time, command string, err error) {
	if flags.root.m != nil {
		flags.root.m.Usage.UsedAll(t0, command)(err)
	}
}
