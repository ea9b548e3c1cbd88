package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/oneconcern/swarmtrie/pkg/metrics/exporters/zaplog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats"
	"go.uber.org/zap"
)

func fixtureRequires(t testing.TB, m *exampleMetrics) {
	require.NotNil(t, m.Telemetry.TestCount)
	require.NotNil(t, m.Volumetry.Chunks.Count)
	require.NotNil(t, m.Network.Requests.Count)
	require.NotNil(t, m.Usage)
	require.NotNil(t, m.Usage.Timing)
}

func exerciseAPI(m *exampleMetrics) {
	Inc(m.Telemetry.TestCount)
	m.Volumetry.Chunks.Inc(4104, "put")
	m.Volumetry.Chunks.Miss("get")
	m.Volumetry.Chunks.Recover(3, "get")
	m.Network.Requests.IORecord(time.Now().Add(-time.Second), "read")(4096, nil)
	m.Network.Requests.IORecord(time.Now(), "read")(0, errors.New("test"))
	m.Usage.UsedAll(time.Now(), "Put")(nil)
}

func TestMetrics(t *testing.T) {
	Init(
		WithExporter(zaplog.NewExporter(zap.NewNop())),
	)
	testMetrics := EnsureMetrics("example", &exampleMetrics{}).(*exampleMetrics)

	fixtureRequires(t, testMetrics)
	exerciseAPI(testMetrics)
	Flush()
}

func TestRegister(t *testing.T) {
	Init()

	// lazy registration
	x := EnsureMetrics("registerExample", &exampleMetrics{})
	fixtureRequires(t, x.(*exampleMetrics))
	exerciseAPI(x.(*exampleMetrics))

	// retry registration
	y := EnsureMetrics("registerExample", &exampleMetrics{})
	require.Equal(t, x, y)

	assert.Panics(t, func() {
		_ = EnsureMetrics("registerExample", &IOMetrics{})
	})
}

func TestStructTags(t *testing.T) {
	s := newSettings()
	m := &exampleMetrics{}

	scanStruct("parent", s.addMetric, m)

	assert.Nil(t, m.Telemetry.UsageCounts)
	assert.Nil(t, m.Telemetry.FailureCounts)
	assert.NotNil(t, m.Volumetry.Chunks.Recovered)

	require.NotNil(t, m.Network.Requests.IOThroughput)
	assert.IsType(t, &stats.Float64Measure{}, m.Network.Requests.IOThroughput)
	assert.Equal(t, "parent/network/throughput", m.Network.Requests.IOThroughput.Name())
	assert.Len(t, s.allMetrics, 13)

	assert.Panics(t, func() { scanStruct("x", s.addMetric, exampleMetrics{}) })
}

func TestEnable(t *testing.T) {
	var e Enable
	assert.False(t, e.MetricsEnabled())
	e.EnableMetrics(true)
	assert.True(t, e.MetricsEnabled())
	m := e.EnsureMetrics("enabled", &UsageMetrics{}).(*UsageMetrics)
	assert.NotNil(t, m.Count)
}
