package cafs

import (
	"github.com/oneconcern/swarmtrie/pkg/metrics"
	"go.opencensus.io/stats"
)

// M describes metrics for the cafs package
type M struct {
	Volume struct {
		Chunks cafsMetrics       `group:"chunks" description:"metrics about cafs chunks"`
		IO     metrics.IOMetrics `group:"io" description:"metrics about cafs IO operations"`
	} `group:"volumetry" description:""`
	Usage metrics.UsageMetrics `group:"telemetry" description:"usage stats for the cafs package"`
}

type cafsMetrics struct {
	RootsCount     *stats.Int64Measure `metric:"roots" extraviews:"sum" tags:"kind,operation" description:"number of stored contents"`
	DuplicateCount *stats.Int64Measure `metric:"duplicateRoots" extraviews:"sum" tags:"kind,operation" description:"number of contents already stored"`
	VisitedCount   *stats.Int64Measure `metric:"visited" extraviews:"sum" tags:"kind,operation" description:"number of chunks visited by traversals"`
	MissingCount   *stats.Int64Measure `metric:"missing" extraviews:"sum" tags:"kind,operation" description:"number of chunks missing when traversing content"`
	RepairedCount  *stats.Int64Measure `metric:"repaired" extraviews:"sum" tags:"kind,operation" description:"number of chunks restored by repairs"`
}

func (*cafsMetrics) tags(operation string) map[string]string {
	return map[string]string{"kind": "io", "operation": operation}
}

func (m *cafsMetrics) IncRoot(operation string) {
	metrics.Inc(m.RootsCount, m.tags(operation))
}

func (m *cafsMetrics) IncDuplicate(operation string) {
	metrics.Inc(m.DuplicateCount, m.tags(operation))
}

func (m *cafsMetrics) Visited(chunks int, operation string) {
	metrics.Int64(m.VisitedCount, int64(chunks), m.tags(operation))
}

func (m *cafsMetrics) Missing(chunks int, operation string) {
	metrics.Int64(m.MissingCount, int64(chunks), m.tags(operation))
}

func (m *cafsMetrics) Repaired(chunks int, operation string) {
	metrics.Int64(m.RepairedCount, int64(chunks), m.tags(operation))
}
