package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"nodeback/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the trace ID so clients can quote it in bug reports.
const TraceIDHeader = "X-Trace-ID"

// Tracing starts a server span per request, named after the matched route
// template. The trace ID is stored in c.Locals("traceID") for the logger.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))

		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.Path()),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Set(TraceIDHeader, traceID)
		if requestID := c.Locals("requestid"); requestID != nil {
			span.SetAttributes(attribute.String("request.id", fmt.Sprintf("%v", requestID)))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		// The route is only known once routing has run.
		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(attribute.String("http.route", route))
		span.SetAttributes(domainAttributes(c, route)...)

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
		}
		return err
	}
}

// domainAttributes tags the span with the caller and, on post routes, the
// post the request targets.
func domainAttributes(c *fiber.Ctx, route string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		attrs = append(attrs, observability.AttrUserID.Int64(int64(uid)))
	}
	if strings.HasPrefix(route, "/posts/") && strings.Contains(route, ":id") {
		if id, err := strconv.ParseUint(c.Params("id"), 10, 64); err == nil {
			attrs = append(attrs, observability.AttrPostID.Int64(int64(id)))
		}
	}
	return attrs
}
