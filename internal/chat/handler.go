package chat

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the support-chat endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a chat HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Ask answers one support question.
func (h *Handler) Ask(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request"})
	}

	reply, err := h.service.Answer(c.UserContext(), req.Message)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Pesan wajib diisi"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Terjadi kesalahan pada server"})
	}

	return c.Status(http.StatusOK).JSON(reply)
}
