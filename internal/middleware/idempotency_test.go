package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/credisave/internal/logging"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return cache
}

func setupIdempotentApp(t *testing.T, calls *int32) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(localUserID, c.Get("X-Test-User"))
		return c.Next()
	})
	app.Use(Idempotency(newRedis(t), time.Minute, logging.Discard()))
	app.Post("/deposits", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	app.Post("/fails", func(c *fiber.Ctx) error {
		atomic.AddInt32(calls, 1)
		return fiber.NewError(fiber.StatusBadRequest, "nope")
	})
	return app
}

func post(t *testing.T, app *fiber.App, path, user, key, body string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", user)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload), resp.Header.Get(idempotencyReplayed)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	var calls int32
	app := setupIdempotentApp(t, &calls)

	status, _, _ := post(t, app, "/deposits", "u1", "", `{}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("handler should not run, ran %d times", n)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	var calls int32
	app := setupIdempotentApp(t, &calls)

	status, first, replayed := post(t, app, "/deposits", "u1", "abc123", `{"amount":"10"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}
	if replayed != "" {
		t.Fatalf("first response must not be marked replayed")
	}

	status, second, replayed := post(t, app, "/deposits", "u1", "abc123", `{"amount":"10"}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if first != second {
		t.Fatalf("expected cached body %q got %q", first, second)
	}
	if replayed != "true" {
		t.Fatalf("expected replay header, got %q", replayed)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected handler to run once, ran %d times", n)
	}
}

func TestIdempotencyKeyScopedPerUser(t *testing.T) {
	var calls int32
	app := setupIdempotentApp(t, &calls)

	post(t, app, "/deposits", "u1", "shared", `{}`)
	_, _, replayed := post(t, app, "/deposits", "u2", "shared", `{}`)
	if replayed != "" {
		t.Fatalf("another user's key must not replay")
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 handler calls, got %d", n)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	var calls int32
	app := setupIdempotentApp(t, &calls)

	post(t, app, "/deposits", "u1", "k1", `{"amount":"10"}`)
	status, _, _ := post(t, app, "/deposits", "u1", "k1", `{"amount":"99"}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected %d got %d", fiber.StatusUnprocessableEntity, status)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected handler to run once, ran %d times", n)
	}
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	var calls int32
	app := setupIdempotentApp(t, &calls)

	for i := 0; i < 2; i++ {
		status, _, _ := post(t, app, "/fails", "u1", "k2", `{}`)
		if status != fiber.StatusBadRequest {
			t.Fatalf("attempt %d: expected %d got %d", i, fiber.StatusBadRequest, status)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("failed responses must not be cached, handler ran %d times", n)
	}
}

func TestIdempotencyWithoutRedisPassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/x", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/x", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected %d got %d", fiber.StatusNoContent, resp.StatusCode)
	}
}
