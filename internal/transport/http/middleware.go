package http

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"queuesmart/backend/internal/auth"
	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/metrics"
)

const actorKey = "queuesmart_actor"

type Authenticator interface {
	Authenticate(header string) (domain.Actor, error)
}

func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		apiErr := toAPIError(err)
		if apiErr.HTTPStatus >= 500 {
			log.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("err", err),
			)
		}
		return c.Status(apiErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		}})
	}
}

func requestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if timeout <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// requestMetrics labels by route pattern, not raw path, to keep label
// cardinality bounded.
func requestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = toAPIError(err).HTTPStatus
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		metrics.RecordHTTPRequest(c.Method(), route, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}

func bearerAuth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := a.Authenticate(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return unauthorized("a valid bearer token is required")
		}
		c.Locals(actorKey, actor)
		c.SetUserContext(auth.WithActor(c.UserContext(), actor))
		return c.Next()
	}
}

func actorFrom(c *fiber.Ctx) domain.Actor {
	actor, _ := c.Locals(actorKey).(domain.Actor)
	return actor
}

func idempotencyKey(c *fiber.Ctx) string {
	if v := strings.TrimSpace(c.Get("Idempotency-Key")); v != "" {
		return v
	}
	return strings.TrimSpace(c.Get("X-Idempotency-Key"))
}
