package telemetry

import (
	"context"
	"testing"

	"docchat/internal/config"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Shared(t *testing.T) {
	m := NewMetrics()
	assert.Same(t, m, NewMetrics())

	before := testutil.ToFloat64(m.ChunksIndexedTotal)
	m.ChunksIndexedTotal.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(m.ChunksIndexedTotal))

	m.ChatRequestsTotal.WithLabelValues("answered").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ChatRequestsTotal.WithLabelValues("answered")), 1.0)
}

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), &config.TelemetryConfig{ServiceName: "docchat"}, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}
