package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/algopay/internal/logging"
)

type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) serve(c *fiber.Ctx) error {
	h.calls++
	return c.Status(h.status).JSON(fiber.Map{"tx_id": "TX", "call": h.calls})
}

func setupTestApp(t *testing.T) (*fiber.App, *countingHandler) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	h := &countingHandler{status: fiber.StatusOK}
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/payments", h.serve)
	return app, h
}

func send(t *testing.T, app *fiber.App, key, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
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
	return resp.StatusCode, string(payload)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, h := setupTestApp(t)

	if status, _ := send(t, app, "", `{}`); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if h.calls != 0 {
		t.Fatalf("handler must not run without a key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, h := setupTestApp(t)
	body := `{"recipient":"X","amount":1}`

	status, first := send(t, app, "abc123", body)
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, status)
	}
	status, second := send(t, app, "abc123", body)
	if status != fiber.StatusOK {
		t.Fatalf("expected replayed status %d got %d", fiber.StatusOK, status)
	}
	if first != second {
		t.Fatalf("expected replayed payload %s got %s", first, second)
	}
	if h.calls != 1 {
		t.Fatalf("expected the payment to run once, ran %d times", h.calls)
	}
}

func TestIdempotencyRejectsDifferentBody(t *testing.T) {
	app, _ := setupTestApp(t)

	send(t, app, "k1", `{"amount":1}`)
	if status, _ := send(t, app, "k1", `{"amount":2}`); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected %d got %d", fiber.StatusUnprocessableEntity, status)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	app, h := setupTestApp(t)
	h.status = fiber.StatusBadGateway

	send(t, app, "k2", `{}`)
	h.status = fiber.StatusOK
	if status, _ := send(t, app, "k2", `{}`); status != fiber.StatusOK {
		t.Fatalf("expected retry to run again, got %d", status)
	}
	if h.calls != 2 {
		t.Fatalf("expected two handler runs, got %d", h.calls)
	}
}
