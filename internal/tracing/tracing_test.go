package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"photocurate/internal/models"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), models.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Stdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), models.TracingConfig{Enabled: true, Exporter: "stdout", ServiceName: "test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), models.TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	SetError(span, errors.New("boom"), PhotoIDKey.String("p1"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.NotEmpty(t, spans[0].Events())
}
