package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(t.Context())
	})
	return recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestSpanCarriesActorAndTarget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	engine := gin.New()
	engine.Use(GinMiddleware())
	api := engine.Group("/api")
	api.Use(func(c *gin.Context) {
		actor := actorcontext.Actor{ID: "admin-1", Role: actorcontext.RoleAdmin}
		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	})
	api.POST("/orders/:id/reconcile", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/42/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/orders/:id/reconcile", spans[0].Name())
	got := spanAttrs(spans[0])
	assert.Equal(t, "order", got[AttrEntity].AsString())
	assert.Equal(t, "42", got[AttrTargetID].AsString())
	assert.Equal(t, "admin-1", got[AttrActorID].AsString())
	assert.Equal(t, "admin", got[AttrActorRole].AsString())
	assert.Equal(t, int64(http.StatusOK), got["http.status_code"].AsInt64())
}

func TestSpanMarksServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := recordSpans(t)

	engine := gin.New()
	engine.Use(GinMiddleware())
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	got := spanAttrs(spans[0])
	_, hasEntity := got[AttrEntity]
	_, hasActor := got[AttrActorID]
	assert.False(t, hasEntity)
	assert.False(t, hasActor)
}

func TestEntityForRoute(t *testing.T) {
	assert.Equal(t, "shipment", entityForRoute("/api/shipments/:id/statement.pdf"))
	assert.Equal(t, "pricing_mode", entityForRoute("/api/pricing-modes"))
	assert.Equal(t, "", entityForRoute("/metrics"))
	assert.Equal(t, "", entityForRoute("/api/unknown"))
}
