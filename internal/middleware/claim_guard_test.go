package middleware

import (
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/goldwar/goldwar/internal/logging"
)

func setupGuardApp(t *testing.T, block chan struct{}) (*fiber.App, *miniredis.Miniredis, *int64) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var handled int64
	app := fiber.New()
	app.Use(ClaimGuard(cache, time.Minute, logging.Discard()))
	app.Post("/claim", func(c *fiber.Ctx) error {
		atomic.AddInt64(&handled, 1)
		if block != nil {
			<-block
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "success"})
	})

	return app, mr, &handled
}

func postClaim(t *testing.T, app *fiber.App, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/claim", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestClaimGuardReleasesAfterResponse(t *testing.T) {
	app, _, handled := setupGuardApp(t, nil)

	if code := postClaim(t, app, `{"user_id":"u1"}`); code != fiber.StatusOK {
		t.Fatalf("first claim: expected 200, got %d", code)
	}
	// Guard released, a sequential second claim passes.
	if code := postClaim(t, app, `{"user_id":"u1"}`); code != fiber.StatusOK {
		t.Fatalf("second claim: expected 200, got %d", code)
	}
	if atomic.LoadInt64(handled) != 2 {
		t.Fatalf("expected handler invoked twice, got %d", atomic.LoadInt64(handled))
	}
}

func TestClaimGuardRejectsConcurrentDuplicate(t *testing.T) {
	app, mr, handled := setupGuardApp(t, nil)

	// Simulate an in-flight claim by pre-setting the reservation.
	mr.Set(claimGuardPrefix+"u2", "1")

	if code := postClaim(t, app, `{"user_id":"u2"}`); code != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate in-flight claim, got %d", code)
	}
	if atomic.LoadInt64(handled) != 0 {
		t.Fatal("handler ran despite in-flight reservation")
	}

	// Different identity is unaffected.
	if code := postClaim(t, app, `{"user_id":"u3"}`); code != fiber.StatusOK {
		t.Fatalf("expected 200 for other identity, got %d", code)
	}
}

func TestClaimGuardIgnoresAnonymousBodies(t *testing.T) {
	app, _, handled := setupGuardApp(t, nil)

	if code := postClaim(t, app, `{}`); code != fiber.StatusOK {
		t.Fatalf("expected 200 for body without user_id, got %d", code)
	}
	if atomic.LoadInt64(handled) != 1 {
		t.Fatal("handler not invoked")
	}
}
