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

// Metrics exposes document engine instruments. A nil *Metrics records nothing.
type Metrics struct {
	documentsRendered metric.Int64Counter
	documentsFailed   metric.Int64Counter
	renderDuration    metric.Float64Histogram
	documentPages     metric.Int64Histogram
	logoFetches       metric.Int64Counter
	rateLimitAllowed  metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
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

// New configures the document instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "docrender"
	}
	meter := provider.Meter(name)

	documentsRendered, err := meter.Int64Counter("docrender_documents_rendered_total")
	if err != nil {
		return nil, err
	}
	documentsFailed, err := meter.Int64Counter("docrender_documents_failed_total")
	if err != nil {
		return nil, err
	}
	renderDuration, err := meter.Float64Histogram("docrender_render_duration_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	documentPages, err := meter.Int64Histogram("docrender_document_pages")
	if err != nil {
		return nil, err
	}
	logoFetches, err := meter.Int64Counter("docrender_logo_fetch_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("docrender_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("docrender_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		documentsRendered: documentsRendered,
		documentsFailed:   documentsFailed,
		renderDuration:    renderDuration,
		documentPages:     documentPages,
		logoFetches:       logoFetches,
		rateLimitAllowed:  rateLimitAllowed,
		rateLimitDenied:   rateLimitDenied,
	}, nil
}

// RecordDocumentRendered counts a stored document with its page count and build time.
func (m *Metrics) RecordDocumentRendered(ctx context.Context, kind string, pages int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("document_kind", strings.TrimSpace(kind)))...)
	m.documentsRendered.Add(ctx, 1, attrs)
	m.documentPages.Record(ctx, int64(pages), attrs)
	m.renderDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordDocumentFailed counts a failed build by error code.
func (m *Metrics) RecordDocumentFailed(ctx context.Context, kind, errorCode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("document_kind", strings.TrimSpace(kind)),
		attribute.String("error_code", strings.TrimSpace(errorCode)),
	)
	m.documentsFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLogoFetch counts remote logo fetches; source is "cache" or "remote".
func (m *Metrics) RecordLogoFetch(ctx context.Context, source string, ok bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.Bool("ok", ok),
	)
	m.logoFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
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

var allowedLabelKeys = map[attribute.Key]struct{}{
	"document_kind": {},
	"error_code":    {},
	"endpoint":      {},
	"status_code":   {},
	"source":        {},
	"ok":            {},
	"reason":        {},
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
