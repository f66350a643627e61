package gate

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func setupHandlerApp(t *testing.T, quota int64) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t, quota)
	// The handler uses wall-clock time; open the gate at midnight so the
	// test is independent of when it runs.
	f.svc.cfg.GateOpenTime = "00:00"

	app := fiber.New()
	h := NewHandler(f.svc)
	app.Post("/api/ticket", h.CreateTicket)
	app.Post("/api/war", h.War)
	app.Get("/api/status", h.Status)
	app.Get("/api/locations", h.Locations)
	app.Get("/api/ticket/:id", h.GetTicket)
	return app, f
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
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
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode %q: %v", string(payload), err)
	}
	return resp.StatusCode, decoded
}

func TestWarEndpointEnvelope(t *testing.T) {
	app, _ := setupHandlerApp(t, 1)

	code, body := doJSON(t, app, fiber.MethodPost, "/api/war", `{"user_id":"u1","name":"Budi"}`)
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "success" {
		t.Fatalf("expected success, got %v", body["status"])
	}
	if ticket, _ := body["ticket_number"].(string); !strings.HasPrefix(ticket, "T-") {
		t.Fatalf("unexpected ticket_number %v", body["ticket_number"])
	}

	// Pool drained: same endpoint now answers failed with HTTP 200.
	code, body = doJSON(t, app, fiber.MethodPost, "/api/war", `{"user_id":"u2","name":"Siti"}`)
	if code != fiber.StatusOK {
		t.Fatalf("expected 200 on drained pool, got %d", code)
	}
	if body["status"] != "failed" {
		t.Fatalf("expected failed, got %v", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	app, _ := setupHandlerApp(t, 7)

	code, body := doJSON(t, app, fiber.MethodGet, "/api/status", "")
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if remaining, _ := body["quota_remaining"].(float64); remaining != 7 {
		t.Fatalf("expected quota_remaining 7, got %v", body["quota_remaining"])
	}
}

func TestTicketEndpointFullFlow(t *testing.T) {
	app, f := setupHandlerApp(t, 5)

	code, body := doJSON(t, app, fiber.MethodPost, "/api/ticket",
		`{"user_id":"`+f.userID+`","location_id":"juanda","time_slot":"08:30:00 - 09:00:00 WIB"}`)
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "success" {
		t.Fatalf("expected success, got %v (%v)", body["status"], body["message"])
	}

	ticket, ok := body["ticket"].(map[string]any)
	if !ok {
		t.Fatalf("missing ticket payload: %v", body)
	}
	id, _ := ticket["id"].(string)
	if id == "" {
		t.Fatal("ticket id missing")
	}

	code, body = doJSON(t, app, fiber.MethodGet, "/api/ticket/"+id, "")
	if code != fiber.StatusOK {
		t.Fatalf("lookup: expected 200, got %d", code)
	}
	if body["status"] != "success" {
		t.Fatalf("lookup: expected success, got %v", body["status"])
	}
}

func TestTicketEndpointUnknownLocation(t *testing.T) {
	app, f := setupHandlerApp(t, 5)

	code, body := doJSON(t, app, fiber.MethodPost, "/api/ticket",
		`{"user_id":"`+f.userID+`","location_id":"nowhere","time_slot":"x"}`)
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body["status"] != "error" {
		t.Fatalf("expected error, got %v", body["status"])
	}
}

func TestLocationsEndpoint(t *testing.T) {
	app, _ := setupHandlerApp(t, 5)

	code, body := doJSON(t, app, fiber.MethodGet, "/api/locations", "")
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	locations, ok := body["locations"].([]any)
	if !ok || len(locations) == 0 {
		t.Fatalf("expected seeded locations, got %v", body["locations"])
	}
}

func TestNotOpenYetEnvelope(t *testing.T) {
	app, f := setupHandlerApp(t, 5)
	// Push opening to end of day so now is always before it.
	f.svc.cfg.GateOpenTime = "23:59"
	f.svc.cfg.PreOpenOffset = time.Minute

	code, body := doJSON(t, app, fiber.MethodPost, "/api/war", `{"user_id":"u1","name":"Budi"}`)
	if code != fiber.StatusTooEarly {
		t.Fatalf("expected 425, got %d", code)
	}
	if body["status"] != "error" {
		t.Fatalf("expected error, got %v", body["status"])
	}

	remaining, _ := f.svc.Remaining(context.Background())
	if remaining != 5 {
		t.Fatalf("pre-open claim consumed quota: %d", remaining)
	}
}
