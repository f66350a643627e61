package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrDuplicateIdentity indicates the NIK, email, or WhatsApp number is
	// already registered.
	ErrDuplicateIdentity = errors.New("identity already registered")

	// ErrDuplicateNIK narrows ErrDuplicateIdentity to a NIK collision so the
	// HTTP layer can word the rejection precisely. It matches
	// errors.Is(err, ErrDuplicateIdentity).
	ErrDuplicateNIK = fmt.Errorf("%w: nik taken", ErrDuplicateIdentity)

	// ErrInvalidFormat indicates a registration field failed validation.
	ErrInvalidFormat = errors.New("invalid registration data")

	// ErrInvalidCredential covers unknown identifiers and wrong passwords
	// alike, so login responses do not reveal which one it was.
	ErrInvalidCredential = errors.New("invalid credentials")
)

var nameSanitizer = regexp.MustCompile(`[^A-Za-z .-]+`)

// Service manages identity lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register validates the submitted data, hashes the password, and stores the
// user. NIK and email/WhatsApp uniqueness is enforced by the repository.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	if err := validateRegistration(reg); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		NIK:          reg.NIK,
		Nama:         strings.ToUpper(sanitizeName(reg.Nama)),
		Whatsapp:     reg.Whatsapp,
		Email:        reg.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate resolves the identifier and compares the password against the
// stored bcrypt hash.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	if creds.Identifier == "" || creds.Password == "" {
		return User{}, ErrInvalidCredential
	}

	user, err := s.repo.FindByEmailOrPhone(ctx, creds.Identifier)
	if err != nil {
		return User{}, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredential
	}

	return user, nil
}

// Resolve fetches a user by ID.
func (s *Service) Resolve(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func validateRegistration(reg Registration) error {
	if len(reg.NIK) != 16 || !isAllDigits(reg.NIK) {
		return fmt.Errorf("%w: NIK must be exactly 16 digits", ErrInvalidFormat)
	}
	if sanitizeName(reg.Nama) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFormat)
	}
	if !isValidPhone(reg.Whatsapp) {
		return fmt.Errorf("%w: WhatsApp number must match 08x with 10-15 digits", ErrInvalidFormat)
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidFormat)
	}
	if !isStrongPassword(reg.Password) {
		return fmt.Errorf("%w: password needs 8+ chars with upper, lower, and digit", ErrInvalidFormat)
	}
	return nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Indonesian mobile pattern: starts with 08, 10-15 digits total.
func isValidPhone(p string) bool {
	if len(p) < 10 || len(p) > 15 {
		return false
	}
	if !strings.HasPrefix(p, "08") {
		return false
	}
	return isAllDigits(p)
}

func isStrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

func sanitizeName(name string) string {
	return strings.TrimSpace(nameSanitizer.ReplaceAllString(name, ""))
}
