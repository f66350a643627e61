package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/goldwar/goldwar/internal/logging"
)

const supportDoc = `Kuota harian dibagi per lokasi butik. Setiap lokasi punya kuota sendiri dan kuota hanya berkurang sampai reset harian.

Antrean dibuka pukul 07:00 WIB. Sebelum jam buka, klaim ditolak kecuali masuk jendela pre-open untuk area Jabodetabek.

Pendaftaran membutuhkan NIK 16 digit, nomor WhatsApp aktif, dan email yang valid.`

type fakeGenerator struct {
	answer string
	err    error
	calls  int
	lastQ  string
	lastP  []Passage
}

func (f *fakeGenerator) Generate(_ context.Context, question string, passages []Passage) (string, error) {
	f.calls++
	f.lastQ = question
	f.lastP = passages
	return f.answer, f.err
}

func TestRetrieveRanksMatchingPassages(t *testing.T) {
	r := NewRetriever(supportDoc)

	got := r.Retrieve("jam berapa antrean dibuka", 2)
	if len(got) == 0 {
		t.Fatal("expected at least one passage")
	}
	if !strings.Contains(got[0].Text, "07:00") {
		t.Fatalf("expected opening-time passage first, got %q", got[0].Text)
	}

	if got := r.Retrieve("pertanyaan tanpa kecocokan sama sekali xyzzy", 2); len(got) != 0 {
		t.Fatalf("expected no passages for unrelated question, got %d", len(got))
	}
	if got := r.Retrieve("kuota", 0); got != nil {
		t.Fatal("expected nil for k=0")
	}
}

func TestAnswerGroundsOnRetrievedPassages(t *testing.T) {
	gen := &fakeGenerator{answer: "Antrean dibuka pukul 07:00 WIB."}
	svc := NewService(NewRetriever(supportDoc), gen, logging.Discard())

	reply, err := svc.Answer(context.Background(), "jam buka antrean")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if reply.Answer != gen.answer {
		t.Fatalf("unexpected answer %q", reply.Answer)
	}
	if len(reply.Sources) == 0 {
		t.Fatal("expected sources alongside the answer")
	}
	if len(gen.lastP) == 0 {
		t.Fatal("generator called without passages")
	}
}

func TestAnswerDegradesWhenGeneratorFails(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model down")}
	svc := NewService(NewRetriever(supportDoc), gen, logging.Discard())

	reply, err := svc.Answer(context.Background(), "kuota lokasi")
	if err != nil {
		t.Fatalf("expected degraded reply, got error %v", err)
	}
	if reply.Answer != unavailableAnswer {
		t.Fatalf("unexpected fallback answer %q", reply.Answer)
	}
	if len(reply.Sources) == 0 {
		t.Fatal("expected sources to survive a generator failure")
	}
}

func TestAnswerRejectsEmptyMessage(t *testing.T) {
	svc := NewService(NewRetriever(supportDoc), &fakeGenerator{}, logging.Discard())

	if _, err := svc.Answer(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestAskEndpoint(t *testing.T) {
	gen := &fakeGenerator{answer: "Kuota dibagi per lokasi."}
	svc := NewService(NewRetriever(supportDoc), gen, logging.Discard())

	app := fiber.New()
	app.Post("/api/chat", NewHandler(svc).Ask)

	post := func(body string) (int, map[string]any) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/chat", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
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

	code, body := post(`{"message":"bagaimana kuota dibagi?"}`)
	if code != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["answer"] != gen.answer {
		t.Fatalf("unexpected answer %v", body["answer"])
	}

	code, body = post(`{"message":""}`)
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", code)
	}
	if body["message"] != "Pesan wajib diisi" {
		t.Fatalf("unexpected message %v", body["message"])
	}
}
