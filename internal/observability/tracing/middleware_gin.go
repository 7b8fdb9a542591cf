package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	obscontext "github.com/smallbiznis/shipledger/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes that tie a request to the ledger record it acted on.
const (
	AttrActorID   = "shipledger.actor.id"
	AttrActorRole = "shipledger.actor.role"
	AttrEntity    = "shipledger.entity"
	AttrTargetID  = "shipledger.target.id"
)

// routeEntities maps the first /api path segment to the entity it serves.
var routeEntities = map[string]string{
	"orders":         "order",
	"shipments":      "shipment",
	"allocations":    "allocation",
	"pricing-modes":  "pricing_mode",
	"reconcile-runs": "reconcile_run",
}

// GinMiddleware opens a server span per request. The actor is read after the
// handler chain runs, since actor headers are resolved inside the /api group.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("shipledger/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withRequestBaggage(ctx, span)
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		if entity := entityForRoute(route); entity != "" {
			attrs = append(attrs, attribute.String(AttrEntity, entity))
			if id := strings.TrimSpace(c.Param("id")); id != "" {
				attrs = append(attrs, attribute.String(AttrTargetID, id))
			}
		}
		if actor, ok := actorcontext.FromContext(c.Request.Context()); ok {
			attrs = append(attrs,
				attribute.String(AttrActorID, actor.ID),
				attribute.String(AttrActorRole, string(actor.Role)),
			)
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

func withRequestBaggage(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

// entityForRoute returns the entity for routes like /api/orders/:id/price.
func entityForRoute(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/")
	if !ok {
		return ""
	}
	segment, _, _ := strings.Cut(rest, "/")
	return routeEntities[segment]
}
