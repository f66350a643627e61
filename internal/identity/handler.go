package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/goldwar/goldwar/internal/captcha"
)

// Handler exposes registration and login endpoints. Both are guarded by the
// two-factor challenge pair.
type Handler struct {
	service *Service
	captcha *captcha.Service
}

// NewHandler builds an identity HTTP handler.
func NewHandler(service *Service, captchaSvc *captcha.Service) *Handler {
	return &Handler{service: service, captcha: captchaSvc}
}

type registerRequest struct {
	NIK                string `json:"nik"`
	Nama               string `json:"nama"`
	Whatsapp           string `json:"whatsapp"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	CaptchaMathToken   string `json:"captcha_math_token"`
	CaptchaMathAnswer  string `json:"captcha_math_answer"`
	CaptchaImageToken  string `json:"captcha_image_token"`
	CaptchaImageAnswer string `json:"captcha_image_answer"`
}

type loginRequest struct {
	Identifier         string `json:"identifier"`
	Password           string `json:"password"`
	CaptchaMathToken   string `json:"captcha_math_token"`
	CaptchaMathAnswer  string `json:"captcha_math_answer"`
	CaptchaImageToken  string `json:"captcha_image_token"`
	CaptchaImageAnswer string `json:"captcha_image_answer"`
}

// userPayload is the public projection of a user; the credential hash never
// leaves the server.
func userPayload(user User) fiber.Map {
	return fiber.Map{
		"id":       user.ID,
		"nik":      user.NIK,
		"nama":     user.Nama,
		"whatsapp": user.Whatsapp,
		"email":    user.Email,
	}
}

// Register validates the challenge pair and creates the user.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request"})
	}

	ok, err := h.captcha.VerifyPair(c.UserContext(), captcha.Pair{
		MathToken:   req.CaptchaMathToken,
		MathAnswer:  req.CaptchaMathAnswer,
		ImageToken:  req.CaptchaImageToken,
		ImageAnswer: req.CaptchaImageAnswer,
	})
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Terjadi kesalahan pada server"})
	}
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Captcha tidak valid"})
	}

	user, err := h.service.Register(c.UserContext(), Registration{
		NIK:      req.NIK,
		Nama:     req.Nama,
		Whatsapp: req.Whatsapp,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidFormat):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": err.Error()})
		case errors.Is(err, ErrDuplicateNIK):
			return c.Status(http.StatusConflict).JSON(fiber.Map{"status": "error", "message": "NIK sudah terdaftar"})
		case errors.Is(err, ErrDuplicateIdentity):
			return c.Status(http.StatusConflict).JSON(fiber.Map{"status": "error", "message": "Email atau nomor WhatsApp sudah terdaftar"})
		default:
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Terjadi kesalahan pada server"})
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Registrasi berhasil",
		"user":    userPayload(user),
	})
}

// Login validates the challenge pair and authenticates the identifier.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid request"})
	}

	if req.Identifier == "" || req.Password == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Identifier dan password wajib diisi"})
	}

	ok, err := h.captcha.VerifyPair(c.UserContext(), captcha.Pair{
		MathToken:   req.CaptchaMathToken,
		MathAnswer:  req.CaptchaMathAnswer,
		ImageToken:  req.CaptchaImageToken,
		ImageAnswer: req.CaptchaImageAnswer,
	})
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Terjadi kesalahan pada server"})
	}
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Captcha tidak valid"})
	}

	user, err := h.service.Authenticate(c.UserContext(), Credentials{Identifier: req.Identifier, Password: req.Password})
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"status": "error", "message": "Identifier atau password salah"})
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Login berhasil",
		"user":    userPayload(user),
	})
}
