package observability

import (
	"context"
	"errors"
	"testing"

	"nodeback/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Env:             "development",
		TracingEnabled:  true,
		TracingExporter: "otlp",
		OTLPEndpoint:    "collector:4318",
	}
	tc := TracingConfigFrom(cfg, "2.1.0")
	assert.Equal(t, ServiceName, tc.ServiceName)
	assert.Equal(t, "2.1.0", tc.ServiceVersion)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "otlp", tc.Exporter)
	assert.Equal(t, "collector:4318", tc.OTLPEndpoint)
	assert.Equal(t, 1.0, tc.SamplerRatio)

	cfg.Env = "Production"
	assert.Equal(t, 0.1, TracingConfigFrom(cfg, "2.1.0").SamplerRatio)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Contains(t, samplerFor(0.1).Description(), "ParentBased")
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	prev := Tracer
	t.Cleanup(func() { Tracer = prev })

	shutdown, err := InitTracing(TracingConfig{ServiceName: ServiceName})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestServiceSpanRecordsDomainAttributes(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := Tracer
	Tracer = tp.Tracer("test")
	t.Cleanup(func() {
		Tracer = prev
		_ = tp.Shutdown(context.Background())
	})

	_, span := StartServiceSpan(context.Background(), "PostService", "CreatePost", AttrUserID.Int64(3))
	span.AddAttributes(AttrPostID.Int64(9), AttrNotifyTarget.Int(2))
	span.SetError(errors.New("db down"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "PostService.CreatePost", spans[0].Name)
	attrs := map[string]int64{}
	for _, kv := range spans[0].Attributes {
		if kv.Value.Type().String() == "INT64" {
			attrs[string(kv.Key)] = kv.Value.AsInt64()
		}
	}
	assert.Equal(t, map[string]int64{
		"nodeback.user_id":                 3,
		"nodeback.post_id":                 9,
		"nodeback.notification_recipients": 2,
	}, attrs)
	assert.Len(t, spans[0].Events, 1, "the error is recorded as an event")

	var nilSpan *Span
	assert.NotPanics(t, func() {
		nilSpan.AddAttributes(AttrPostID.Int64(1))
		nilSpan.SetError(errors.New("x"))
		nilSpan.End()
	})
}
