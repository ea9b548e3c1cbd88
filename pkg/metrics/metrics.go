package metrics

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	// KB stands for kilo bytes (1024 bytes)
	KB = units.KiB

	// MB stands for mega bytes (1024 kilo bytes)
	MB = units.MiB

	unitCount    = "count"
	unitSumBytes = "sumbytes"
	unitBps      = "bps"
)

var (
	// global settings for metrics
	mp       *settings
	initOnce sync.Once
)

type settings struct {
	basePath  string
	contexter func() context.Context
	exporter  view.Exporter

	allMetrics []stats.Measure
	allViews   []*view.View

	// a map of all registered modules
	modules   map[string]interface{}
	exclusive sync.Mutex

	d time.Duration
}

func defaultSettings() *settings {
	return &settings{
		modules:   make(map[string]interface{}),
		contexter: context.Background,
	}
}

func newSettings(opts ...Option) *settings {
	s := defaultSettings()
	for _, apply := range opts {
		apply(s)
	}

	s.RegisterExporter()
	return s
}

func global() *settings {
	Init()
	return mp
}

func (s *settings) EnsureMetrics(location string, m interface{}) interface{} {
	s.exclusive.Lock()
	defer s.exclusive.Unlock()
	location = path.Join(s.basePath, location)

	if existing, ok := s.modules[location]; ok {
		if !equalType(existing, m) {
			panic("trying to re-register existing metrics module with a different type")
		}
		return existing
	}
	scanStruct(location, s.addMetric, m)
	s.modules[location] = m
	return m
}

// Flush collects all remaining data for registered views and exports them
func (s *settings) Flush() {
	if s.exporter == nil {
		return
	}
	for _, v := range s.allViews {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			continue
		}
		now := time.Now()
		s.exporter.ExportView(&view.Data{
			View:  v,
			Start: now,
			End:   now,
			Rows:  rows,
		})
	}
}

// RegisterExporter registers the current exporter to the opencensus library
func (s *settings) RegisterExporter() {
	if s.exporter == nil {
		return
	}
	view.RegisterExporter(s.exporter)
	if s.d >= time.Second {
		view.SetReportingPeriod(s.d)
	}
}

// addMetric creates a metric with some views, according to the decoded struct tags.
//
// Every metric is created with a default view according to its unit type:
//   - counters (unit=unitCount or "") get a count view
//   - bytes get a bytes size distribution view
//   - timings get a duration distribution view
//   - throughputs (bps) get a throughput distribution view
//   - sumbytes get a cumulated bytes size sum view
//
// Extra views are declared with struct tags, e.g. extraviews:"sum,lastvalue,count"
func (s *settings) addMetric(m interface{}, metric, group string, tags map[string]string) interface{} {
	name := path.Join(group, metric)
	description := tags["description"]
	if description == "" {
		description = describeFromTags(name, tags)
	}
	u, dist := unitAndDist(tags["unit"])

	var measure stats.Measure
	switch m.(type) {
	case *stats.Int64Measure:
		measure = stats.Int64(name, description, u)
	case *stats.Float64Measure:
		measure = stats.Float64(name, description, u)
	default:
		return nil
	}
	s.allMetrics = append(s.allMetrics, measure)

	var keys []tag.Key
	for _, g := range strings.Split(tags["groupings"], ",") {
		if g != "" {
			keys = append(keys, tag.MustNewKey(g))
		}
	}

	s.register(&view.View{
		Name:        name,
		Description: describeViewFromDist(description, dist),
		Measure:     measure,
		Aggregation: dist,
		TagKeys:     keys,
	})

	for _, extra := range strings.Split(tags["views"], ",") {
		var agg *view.Aggregation
		switch extra {
		case unitCount:
			agg = view.Count()
		case "sum":
			agg = view.Sum()
		case "lastvalue":
			agg = view.LastValue()
		default:
			continue
		}
		s.register(&view.View{
			Name:        describeViewFromDist(name, agg),
			Description: describeViewFromDist(description, agg),
			Measure:     measure,
			Aggregation: agg,
			TagKeys:     keys,
		})
	}
	return measure
}

func (s *settings) register(v *view.View) {
	s.allViews = append(s.allViews, v)
	_ = view.Register(v)
}

func durationDistribution() *view.Aggregation {
	// buckets in milliseconds
	return view.Distribution(
		1, 5, 10, 50,
		100, 300, 500, 700, 900,
		1000, 2000, 5000,
		10000, 30000, 60000,
	)
}

func bytesDistribution() *view.Aggregation {
	// buckets in bytes, centered around the chunk size
	return view.Distribution(
		32, 64, 512,
		1*KB, 2*KB, 4*KB, 4*KB+8,
		16*KB, 64*KB, 1*MB,
		16*MB, 256*MB,
	)
}

func throughputDistribution() *view.Aggregation {
	return view.Distribution(
		1*KB, 5*KB, 50*KB, 100*KB,
		1*MB,
		10*MB,
		50*MB,
		100*MB,
		500*MB,
	)
}

func unitAndDist(unit string) (string, *view.Aggregation) {
	switch unit {
	case "milliseconds":
		return stats.UnitMilliseconds, durationDistribution()
	case "bytes":
		return stats.UnitBytes, bytesDistribution()
	case unitSumBytes:
		return stats.UnitBytes, view.Sum()
	case "bytespersec", unitBps:
		return unitBps, throughputDistribution()
	default:
		return stats.UnitDimensionless, view.Count()
	}
}

func describeFromTags(name string, tags map[string]string) string {
	switch unit := tags["unit"]; unit {
	case unitSumBytes:
		return name + " cumulated bytes"
	case "", unitCount:
		return name + " counter"
	default:
		return name + " in " + unit
	}
}

func describeViewFromDist(desc string, in *view.Aggregation) string {
	if in == nil {
		return desc
	}
	switch in.Type {
	case view.AggTypeCount:
		return desc + " [count]"
	case view.AggTypeSum:
		return desc + " [cumulated]"
	case view.AggTypeDistribution:
		return desc + " [distribution]"
	case view.AggTypeLastValue:
		return desc + " [last]"
	default:
		return desc
	}
}
