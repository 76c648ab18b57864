package tracing

import (
	"context"
	"errors"

	"github.com/smallbiznis/docrender/internal/document/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractContext reads the upstream trace context from carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

var blockedAttributeKeys = map[attribute.Key]struct{}{
	"company.uic":    {},
	"client.email":   {},
	"client.phone":   {},
	"client.bulstat": {},
	"http.url":       {},
}

// SafeAttributes drops attributes that may carry customer data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, blocked := blockedAttributeKeys[attr.Key]; blocked {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its error code so span events carry no document
// content. Foreign errors are reported by type only.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if code := domain.Code(err); code != "" {
		return errors.New(code)
	}
	return errors.New("internal_error")
}
