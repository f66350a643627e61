package gate

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/goldwar/goldwar/internal/captcha"
	"github.com/goldwar/goldwar/internal/identity"
	"github.com/goldwar/goldwar/internal/ledger"
)

// Handler exposes the claim, status, and ticket endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a gate HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type captchaFields struct {
	MathToken   string `json:"captcha_math_token"`
	MathAnswer  string `json:"captcha_math_answer"`
	ImageToken  string `json:"captcha_image_token"`
	ImageAnswer string `json:"captcha_image_answer"`
}

func (f captchaFields) pair() *captcha.Pair {
	if f.MathToken == "" && f.ImageToken == "" {
		return nil
	}
	return &captcha.Pair{
		MathToken:   f.MathToken,
		MathAnswer:  f.MathAnswer,
		ImageToken:  f.ImageToken,
		ImageAnswer: f.ImageAnswer,
	}
}

type ticketRequest struct {
	UserID     string  `json:"user_id"`
	LocationID string  `json:"location_id"`
	TimeSlot   string  `json:"time_slot"`
	SizeGram   float64 `json:"size_gram,omitempty"`
	captchaFields
}

// CreateTicket handles the location-bound claim.
func (h *Handler) CreateTicket(c *fiber.Ctx) error {
	var req ticketRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request"})
	}

	ticket, err := h.service.Claim(c.UserContext(), ClaimInput{
		UserID:     req.UserID,
		LocationID: req.LocationID,
		TimeSlot:   req.TimeSlot,
		SizeGram:   req.SizeGram,
		Captcha:    req.pair(),
	}, time.Now())
	if err != nil {
		status, message := MapError(err)
		return c.Status(rejectionHTTPStatus(err)).JSON(fiber.Map{"status": status, "message": message})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Tiket berhasil dibuat",
		"ticket":  ticket,
	})
}

type warRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	captchaFields
}

// War handles the global-pool rush claim.
func (h *Handler) War(c *fiber.Ctx) error {
	var req warRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request"})
	}

	result, err := h.service.WarClaim(c.UserContext(), req.pair(), time.Now())
	if err != nil {
		if errors.Is(err, ledger.ErrQuotaExhausted) {
			return c.Status(http.StatusOK).JSON(fiber.Map{
				"status":    "failed",
				"message":   "Kuota habis",
				"remaining": 0,
			})
		}
		status, message := MapError(err)
		return c.Status(rejectionHTTPStatus(err)).JSON(fiber.Map{"status": status, "message": message})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":        "success",
		"ticket_number": result.TicketNumber,
		"remaining":     result.Remaining,
	})
}

// Status reports the remaining war-pool quota for display polling.
func (h *Handler) Status(c *fiber.Ctx) error {
	remaining, err := h.service.Remaining(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "status unavailable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"quota_remaining": remaining})
}

// Locations lists admission points with live quotas.
func (h *Handler) Locations(c *fiber.Ctx) error {
	locations, err := h.service.Locations(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "locations unavailable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"locations": locations})
}

// GetTicket fetches an issued ticket by ID.
func (h *Handler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Ticket(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Tiket tidak ditemukan"})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "success", "ticket": ticket})
}

// Domain rejections answer 200 with a failed/error status body, matching the
// vocabulary the client switches on; only early gating uses HTTP errors.
func rejectionHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotOpenYet):
		return http.StatusTooEarly
	case errors.Is(err, ErrCaptchaFailed):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrLocationNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrPreOpenNotEligible):
		return http.StatusForbidden
	case errors.Is(err, ErrMonthlyLimitExceeded), errors.Is(err, ledger.ErrQuotaExhausted):
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
