package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/pricesync/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func spanAttr(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.AsString()
		}
	}
	return ""
}

func TestTracing(t *testing.T) {
	sr := setupTestTracer(t)

	r := gin.New()
	r.Use(RequestID(), Tracing("pricesync", "/health"), SpanAttributes())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/campaigns/:id/sync-price", func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), "ops-1"))
		c.Status(http.StatusOK)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	req := httptest.NewRequest(http.MethodPost, "/campaigns/42/sync-price", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	serve(r, req)

	spans := sr.Ended()
	require.Len(t, spans, 1, "health probes are not traced")
	assert.Contains(t, spans[0].Name(), "/campaigns/:id/sync-price")
	assert.Equal(t, "req-9", spanAttr(spans[0].Attributes(), "request_id"))
	assert.Equal(t, "ops-1", spanAttr(spans[0].Attributes(), "enduser.id"))
}

func TestSpanAttributes_NoSpan(t *testing.T) {
	r := gin.New()
	r.Use(SpanAttributes())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}
