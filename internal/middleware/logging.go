// Package middleware provides logging, tracing and rate limiting middleware
// for the application.
package middleware

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is the process-wide structured logger. Handlers and services log
// through it with the *Context variants so request attributes ride along.
var Logger *slog.Logger

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	TraceIDKey   contextKey = "trace_id"
)

// slowRequestThreshold marks requests worth a warning even when they succeed.
const slowRequestThreshold = 2 * time.Second

// ctxHandler decorates every record with the request attributes stored in
// the context by ContextMiddleware.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, key := range []contextKey{RequestIDKey, UserIDKey, TraceIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			r.AddAttrs(slog.String(string(key), v))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func init() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	switch os.Getenv("APP_ENV") {
	case "production", "prod":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		// Text output reads better during local development.
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(&ctxHandler{handler})
}

// ContextMiddleware copies request-scoped identifiers from Fiber locals into
// the user context so ctxHandler can attach them anywhere down the stack,
// including repository and service code that never sees the fiber.Ctx.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		for key, local := range map[contextKey]string{
			RequestIDKey: "requestid",
			UserIDKey:    "userID",
			TraceIDKey:   "traceID",
		} {
			if v, ok := c.Locals(local).(string); ok && v != "" {
				ctx = context.WithValue(ctx, key, v)
			}
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request after the handler chain ran.
// The caller identity lands via ctxHandler when auth populated the locals.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()

		attrs := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", latency),
			slog.Int("bytes", len(c.Response().Body())),
			slog.String("user_agent", c.Get("User-Agent")),
		}

		ctx := c.UserContext()
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			Logger.ErrorContext(ctx, "request failed", attrs...)
		case latency > slowRequestThreshold:
			Logger.WarnContext(ctx, "slow request", attrs...)
		default:
			Logger.InfoContext(ctx, "request processed", attrs...)
		}

		return err
	}
}
