// Package observe provides the OpenTelemetry metric instruments of the smile
// alarm. Instruments are created from the global meter provider unless a
// provider is passed explicitly; tests should use NewMetrics with an SDK
// provider and a manual reader to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/oshokin/smile-alarm"

// Metrics holds the metric instruments. All fields are safe for concurrent use.
type Metrics struct {
	// AlarmTriggers counts accepted alarm triggers.
	AlarmTriggers metric.Int64Counter
	// DroppedTriggers counts triggers rejected because a session was already active.
	DroppedTriggers metric.Int64Counter
	// SessionStops counts completed stops. Use with attribute.String("reason", ...).
	SessionStops metric.Int64Counter
	// FramesIngested counts new camera frames published for analysis.
	FramesIngested metric.Int64Counter
	// DetectorFailures counts failed or timed out detector calls.
	DetectorFailures metric.Int64Counter
	// CollaboratorFailures counts camera and audio failures. Use with
	// attribute.String("collaborator", ...).
	CollaboratorFailures metric.Int64Counter
	// PersistenceFailures counts failed saves of alarms or preferences.
	PersistenceFailures metric.Int64Counter
	// Ringing is 1 while a session is ringing.
	Ringing metric.Int64UpDownCounter
	// ConfirmDuration records the time from ring start to a smile confirmation.
	ConfirmDuration metric.Float64Histogram
}

var confirmBuckets = []float64{2, 3, 5, 10, 20, 30, 60, 120, 300, 600}

// NewMetrics creates every instrument using the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}

	var err error

	if met.AlarmTriggers, err = m.Int64Counter("smile_alarm.triggers",
		metric.WithDescription("Alarm triggers accepted by the session controller."),
	); err != nil {
		return nil, err
	}

	if met.DroppedTriggers, err = m.Int64Counter("smile_alarm.triggers.dropped",
		metric.WithDescription("Alarm triggers dropped because a session was active."),
	); err != nil {
		return nil, err
	}

	if met.SessionStops, err = m.Int64Counter("smile_alarm.session.stops",
		metric.WithDescription("Completed ringing session stops by reason."),
	); err != nil {
		return nil, err
	}

	if met.FramesIngested, err = m.Int64Counter("smile_alarm.camera.frames",
		metric.WithDescription("Camera frames published for analysis."),
	); err != nil {
		return nil, err
	}

	if met.DetectorFailures, err = m.Int64Counter("smile_alarm.detector.failures",
		metric.WithDescription("Smile detector calls that failed or timed out."),
	); err != nil {
		return nil, err
	}

	if met.CollaboratorFailures, err = m.Int64Counter("smile_alarm.collaborator.failures",
		metric.WithDescription("Camera and audio collaborator failures."),
	); err != nil {
		return nil, err
	}

	if met.PersistenceFailures, err = m.Int64Counter("smile_alarm.persistence.failures",
		metric.WithDescription("Failed writes of alarms or preferences."),
	); err != nil {
		return nil, err
	}

	if met.Ringing, err = m.Int64UpDownCounter("smile_alarm.session.ringing",
		metric.WithDescription("1 while an alarm is ringing."),
	); err != nil {
		return nil, err
	}

	if met.ConfirmDuration, err = m.Float64Histogram("smile_alarm.session.confirm_duration",
		metric.WithDescription("Time from ring start to a confirmed smile."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(confirmBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns instruments bound to the global meter provider.
// With no SDK installed they are no-ops.
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}

		defaultMetrics = m
	})

	return defaultMetrics
}

// RecordStop counts a completed stop with its reason.
func (m *Metrics) RecordStop(ctx context.Context, reason string) {
	m.SessionStops.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCollaboratorFailure counts a failure of the named collaborator.
func (m *Metrics) RecordCollaboratorFailure(ctx context.Context, collaborator string) {
	m.CollaboratorFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("collaborator", collaborator)))
}
