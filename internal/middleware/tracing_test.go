package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chirp/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })

	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == "boom" {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/posts/42", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(TraceIDHeader), 32)

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/posts/boom", nil))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "GET /posts/:id", spans[0].Name())
	assert.Equal(t, resp.Header.Get(TraceIDHeader), spans[0].SpanContext().TraceID().String())
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", 200))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
