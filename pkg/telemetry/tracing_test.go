package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	c := Config{SampleRatio: 5}.normalize()
	require.Equal(t, defaultEndpoint, c.Endpoint)
	require.Equal(t, 1.0, c.SampleRatio)

	c = Config{Endpoint: "jaeger:4318", SampleRatio: -1}.normalize()
	require.Equal(t, "jaeger:4318", c.Endpoint)
	require.Equal(t, 0.0, c.SampleRatio)
}

func TestConfig_Sampler_ParentWins(t *testing.T) {
	t.Parallel()

	// доля 0, но родитель семплирован — спан сохраняется
	s := Config{SampleRatio: 0}.Sampler()
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{1},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	res := s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithRemoteSpanContext(context.Background(), parent),
		TraceID:       parent.TraceID(),
		Name:          "kafka.consume",
	})
	require.Equal(t, sdktrace.RecordAndSample, res.Decision)

	// без родителя при доле 0 — отбрасывается
	res = s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{2},
		Name:          "kafka.consume",
	})
	require.Equal(t, sdktrace.Drop, res.Decision)
}

func TestConfig_Resource_Environment(t *testing.T) {
	t.Parallel()

	r := Config{ServiceName: "dms-events", Environment: "prod"}.Resource()
	got := map[string]string{}
	for _, kv := range r.Attributes() {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	require.Equal(t, "dms-events", got["service.name"])
	require.Equal(t, "prod", got["deployment.environment"])
	require.Equal(t, "kafka", got["messaging.system"])
}

func TestSetupTracing_InstallsPropagator(t *testing.T) {
	// экспортёр создаётся лениво: коллектор для теста не нужен
	shutdown, err := SetupTracing(context.Background(), Config{ServiceName: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	require.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")
}
