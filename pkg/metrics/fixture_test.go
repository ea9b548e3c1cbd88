package metrics

import "go.opencensus.io/stats"

type exampleMetrics struct {
	Telemetry struct {
		UsageCounts   []ChunkMetrics        `group:"usage" description:""`    // ignored
		FailureCounts []*stats.Int64Measure `group:"failures" description:""` // ignored
		TestCount     *stats.Int64Measure   `metric:"testCount" description:"number of tests"`
	} `group:"telemetry" description:""`
	Volumetry struct {
		Chunks ChunkMetrics `group:"chunks" description:""`
	} `group:"volumetry" description:""`
	Network struct {
		Requests IOMetrics
	} `group:"network" description:""`
	Usage *UsageMetrics `group:"usage"`
}
