package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("document_kind", "invoice"),
		attribute.Int64("order_id", 42),
		attribute.String("error_code", "missing_logo"),
	)
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key("document_kind"), attrs[0].Key)
	assert.Equal(t, attribute.Key("error_code"), attrs[1].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordDocumentRendered(context.Background(), "invoice", 2, time.Second)
		m.RecordDocumentFailed(context.Background(), "invoice", "render_failed")
		m.RecordLogoFetch(context.Background(), "remote", true)
		m.RecordRateLimitDenied(context.Background(), "/v1/invoices/render", "exhausted")
	})
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordDocumentRendered(context.Background(), "warranty", 1, time.Millisecond)
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(nil, Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestNewExporterRejectsUnknownProtocol(t *testing.T) {
	_, err := newExporter("carrier-pigeon", "")
	assert.Error(t, err)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(reg)
	require.NoError(t, err)

	_, err = NewHTTPMetrics(reg)
	assert.Error(t, err, "duplicate registration")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.requests.WithLabelValues("/health", http.MethodGet, "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
}
