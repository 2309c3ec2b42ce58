package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	glazeAuth "github.com/MrEthical07/glazeAuth"
	"github.com/MrEthical07/glazeAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() glazeAuth.MetricsSnapshot
	AuditDropped() uint64
}

// member maps one client counter onto an attribute value of its family.
type member struct {
	id    glazeAuth.MetricID
	value string
}

// family is one instrument whose data points are split by a single
// attribute. An empty key means the family has one unlabelled point.
type family struct {
	name    string
	help    string
	key     string
	members []member
}

// families assigns every client counter except latency to exactly one
// instrument.
var families = []family{
	{
		name: "glazeauth.requests", help: "Request pipeline calls by outcome.", key: "outcome",
		members: []member{
			{glazeAuth.MetricRequestSuccess, "success"},
			{glazeAuth.MetricRequestTransportError, "transport"},
			{glazeAuth.MetricRequestTimeout, "timeout"},
			{glazeAuth.MetricRequestBusinessError, "business"},
		},
	},
	{
		name: "glazeauth.logins", help: "Login attempts that reached the server, by result.", key: "result",
		members: []member{
			{glazeAuth.MetricLoginSuccess, "success"},
			{glazeAuth.MetricLoginFailure, "failure"},
		},
	},
	{
		name: "glazeauth.session.events", help: "Session lifecycle transitions.", key: "event",
		members: []member{
			{glazeAuth.MetricSessionRestored, "restored"},
			{glazeAuth.MetricSessionExpired, "expired"},
			{glazeAuth.MetricLogout, "logout"},
			{glazeAuth.MetricLogoutRemoteFailure, "logout_remote_failure"},
		},
	},
	{
		name: "glazeauth.refreshes", help: "Token refreshes by result.", key: "result",
		members: []member{
			{glazeAuth.MetricRefreshSuccess, "success"},
			{glazeAuth.MetricRefreshFailure, "failure"},
		},
	},
	{
		name: "glazeauth.binds", help: "Bind and unbind calls by result.", key: "result",
		members: []member{
			{glazeAuth.MetricBindSuccess, "success"},
			{glazeAuth.MetricBindFailure, "failure"},
		},
	},
	{
		name: "glazeauth.bind_offers", help: "Deferred credential bind offers.",
		members: []member{
			{id: glazeAuth.MetricBindOfferScheduled},
		},
	},
}

const (
	latencyName = "glazeauth.request.latency"
	latencyHelp = "Cumulative request latency samples at or below the le bound, in seconds."
	droppedName = "glazeauth.audit.dropped"
)

type point struct {
	id   glazeAuth.MetricID
	opts []metric.ObserveOption
}

type observedFamily struct {
	instrument metric.Int64ObservableCounter
	points     []point
}

// OTelExporter publishes a client's metrics as OpenTelemetry observable
// instruments. Values are read from a fresh snapshot on every collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	families     []observedFamily
	latency      metric.Int64ObservableGauge
	latencyAttrs [8][]metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that observe client.
func NewOTelExporter(meter metric.Meter, client *glazeAuth.Client) (*OTelExporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, client)
}

func attrs(key, value string) []metric.ObserveOption {
	if key == "" {
		return nil
	}
	return []metric.ObserveOption{metric.WithAttributeSet(attribute.NewSet(attribute.String(key, value)))}
}

// NewOTelExporterFromSource registers instruments on meter that observe source.
// Latency buckets are reported as one gauge keyed by an "le" attribute.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &OTelExporter{
		source:   source,
		families: make([]observedFamily, 0, len(families)),
	}
	observables := make([]metric.Observable, 0, len(families)+2)

	for _, f := range families {
		ins, err := meter.Int64ObservableCounter(f.name, metric.WithDescription(f.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", f.name, err)
		}
		of := observedFamily{instrument: ins, points: make([]point, 0, len(f.members))}
		for _, m := range f.members {
			of.points = append(of.points, point{id: m.id, opts: attrs(f.key, m.value)})
		}
		exporter.families = append(exporter.families, of)
		observables = append(observables, ins)
	}

	latency, err := meter.Int64ObservableGauge(latencyName, metric.WithDescription(latencyHelp))
	if err != nil {
		return nil, fmt.Errorf("create latency gauge: %w", err)
	}
	exporter.latency = latency
	for i := range exporter.latencyAttrs {
		le := "+Inf"
		if i < len(internaldefs.HistogramUpperBounds) {
			le = strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'g', -1, 64)
		}
		exporter.latencyAttrs[i] = attrs("le", le)
	}
	observables = append(observables, latency)

	auditDropped, err := meter.Int64ObservableCounter(droppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

func (e *OTelExporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, f := range e.families {
		for _, p := range f.points {
			observer.ObserveInt64(f.instrument, int64(snapshot.Counters[p.id]), p.opts...)
		}
	}
	cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[glazeAuth.MetricRequestLatency]))
	for i, n := range cumulative {
		observer.ObserveInt64(e.latency, int64(n), e.latencyAttrs[i]...)
	}
	observer.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
