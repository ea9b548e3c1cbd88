package metrics

import (
	"time"

	"go.opencensus.io/stats"
)

// ChunkMetrics is a common set of metrics reporting about chunk activity
type ChunkMetrics struct {
	Count     *stats.Int64Measure `metric:"chunkCount" description:"number of chunks" extraviews:"sum" tags:"kind,operation"`
	Size      *stats.Int64Measure `metric:"chunkSize" unit:"bytes" description:"size of chunks" tags:"kind,operation"`
	Missed    *stats.Int64Measure `metric:"chunkMissed" description:"number of chunks not found" tags:"kind,operation"`
	Recovered *stats.Int64Measure `metric:"chunkRecovered" description:"number of chunks recovered from parities" extraviews:"sum" tags:"kind,operation"`
}

func (c *ChunkMetrics) tags(operation string) map[string]string {
	return map[string]string{"kind": "chunk", "operation": operation}
}

// Inc counts a chunk and its size
func (c *ChunkMetrics) Inc(size int, operation string) {
	Inc(c.Count, c.tags(operation))
	Int64(c.Size, int64(size), c.tags(operation))
}

// Miss counts a chunk not found
func (c *ChunkMetrics) Miss(operation string) {
	Inc(c.Missed, c.tags(operation))
}

// Recover counts chunks recovered by erasure decoding
func (c *ChunkMetrics) Recover(n int, operation string) {
	Int64(c.Recovered, int64(n), c.tags(operation))
}

// IOMetrics is a common set of metrics reporting about IO activity
type IOMetrics struct {
	Count        *stats.Int64Measure   `metric:"ioCount" description:"number of IO requests" tags:"kind,operation"`
	Timing       *stats.Float64Measure `metric:"timing" unit:"milliseconds" description:"response time in milliseconds" tags:"kind,operation"`
	Failures     *stats.Int64Measure   `metric:"ioFailures" description:"number of failed IOs" tags:"kind,operation"`
	IOSize       *stats.Int64Measure   `metric:"ioSize" unit:"bytes" description:"IO size in bytes" extraviews:"sum" tags:"kind,operation"`
	IOThroughput *stats.Float64Measure `metric:"throughput" unit:"bytespersec" description:"throughput of an unitary operation in bytes per second" tags:"kind,operation"`
}

func (n *IOMetrics) tags(operation string) map[string]string {
	return map[string]string{"kind": "io", "operation": operation}
}

// IORecord records all metrics for an IO operation in one go.
//
// Example with deferred error capture:
//
//	defer func(start time.Time) {
//	  myIOMetrics.IORecord(start, "read")(size, err)
//	}(time.Now())
func (n *IOMetrics) IORecord(start time.Time, operation string) func(int64, error) {
	return func(size int64, err error) {
		now := time.Now()
		Duration(start, now, n.Timing, n.tags(operation))
		Inc(n.Count, n.tags(operation))
		if size > 0 {
			Int64(n.IOSize, size, n.tags(operation))
		}
		if err != nil {
			Inc(n.Failures, n.tags(operation))
			return
		}
		if elapsed := now.Sub(start); size > 0 && elapsed > 0 {
			Float64(n.IOThroughput, float64(size)/elapsed.Seconds(), n.tags(operation))
		}
	}
}

// UsageMetrics is a common set of metrics reporting about usage
type UsageMetrics struct {
	Count    *stats.Int64Measure   `metric:"usageCount" description:"number of calls" tags:"kind,method"`
	Failures *stats.Int64Measure   `metric:"usageFailures" description:"number of failed calls" tags:"kind,method"`
	Timing   *stats.Float64Measure `metric:"timing" unit:"milliseconds" description:"duration of a call" tags:"kind,method"`
}

func (u *UsageMetrics) tags(method string) map[string]string {
	return map[string]string{"kind": "usage", "method": method}
}

// UsedAll records usage of some instrumented entry point with failures, in one go.
//
// Example:
//
//	defer func(start time.Time) {
//	  myUsageMetrics.UsedAll(start, "MyInstrumentedFunc")(err)
//	}(time.Now())
func (u *UsageMetrics) UsedAll(start time.Time, method string) func(error) {
	return func(err error) {
		Since(start, u.Timing, u.tags(method))
		Inc(u.Count, u.tags(method))
		if err != nil {
			Inc(u.Failures, u.tags(method))
		}
	}
}
