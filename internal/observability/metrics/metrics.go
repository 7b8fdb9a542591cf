package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes fulfillment-level instruments.
type Metrics struct {
	reconcileRuns     metric.Int64Counter
	reconcileDuration metric.Float64Histogram
	reconcileWarnings metric.Int64Counter
	overShipRejected  metric.Int64Counter
	statusTransitions metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shipledger"
	}
	meter := provider.Meter(name)

	reconcileRuns, err := meter.Int64Counter("shipledger_reconcile_runs_total")
	if err != nil {
		return nil, err
	}
	reconcileDuration, err := meter.Float64Histogram("shipledger_reconcile_duration_seconds")
	if err != nil {
		return nil, err
	}
	reconcileWarnings, err := meter.Int64Counter("shipledger_reconcile_warnings_total")
	if err != nil {
		return nil, err
	}
	overShipRejected, err := meter.Int64Counter("shipledger_over_ship_rejected_total")
	if err != nil {
		return nil, err
	}
	statusTransitions, err := meter.Int64Counter("shipledger_status_transitions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		reconcileRuns:     reconcileRuns,
		reconcileDuration: reconcileDuration,
		reconcileWarnings: reconcileWarnings,
		overShipRejected:  overShipRejected,
		statusTransitions: statusTransitions,
	}, nil
}

// RecordReconcile records one reconcile run and its outcome.
func (m *Metrics) RecordReconcile(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.reconcileRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.reconcileDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordReconcileWarning counts rows skipped or partially updated during reconcile.
func (m *Metrics) RecordReconcileWarning(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.reconcileWarnings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOverShipRejected counts over-ship rejections by the path that caught them.
func (m *Metrics) RecordOverShipRejected(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.overShipRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStatusTransition counts order and shipment status changes.
func (m *Metrics) RecordStatusTransition(ctx context.Context, entity, from, to, role string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("entity", strings.TrimSpace(entity)),
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
		attribute.String("role", strings.TrimSpace(role)),
	)
	m.statusTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Entity ids never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"kind":    {},
	"outcome": {},
	"reason":  {},
	"source":  {},
	"entity":  {},
	"from":    {},
	"to":      {},
	"role":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
