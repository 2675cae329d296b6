// Package observetest builds metric instruments backed by a manual reader so
// tests can assert on recorded values.
package observetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/oshokin/smile-alarm/internal/observe"
)

// Recorder pairs metric instruments with the reader that observes them.
type Recorder struct {
	Metrics *observe.Metrics
	reader  *sdkmetric.ManualReader
}

// New returns a Recorder with fresh instruments.
func New(t *testing.T) *Recorder {
	t.Helper()

	reader := sdkmetric.NewManualReader()

	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	return &Recorder{Metrics: m, reader: reader}
}

// Count sums the data points of the named int64 counter, optionally filtered
// by a single attribute key and value.
func (r *Recorder) Count(t *testing.T, name string, attr ...string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, r.reader.Collect(context.Background(), &rm))

	var total int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)

			for _, dp := range sum.DataPoints {
				if len(attr) == 2 {
					v, found := dp.Attributes.Value(attribute.Key(attr[0]))
					if !found || v.AsString() != attr[1] {
						continue
					}
				}

				total += dp.Value
			}
		}
	}

	return total
}
