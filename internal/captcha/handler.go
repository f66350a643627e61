package captcha

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes challenge issuance endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a captcha HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Math issues an arithmetic challenge.
func (h *Handler) Math(c *fiber.Ctx) error {
	challenge, err := h.service.IssueMath(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "captcha unavailable")
	}
	return c.Status(http.StatusOK).JSON(challenge)
}

// Image issues an image-choice challenge.
func (h *Handler) Image(c *fiber.Ctx) error {
	challenge, err := h.service.IssueImage(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "captcha unavailable")
	}
	return c.Status(http.StatusOK).JSON(challenge)
}
